package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"github.com/natefinch/lumberjack"
)

// NewJournalFile returns a rolling file for the detection journal.
func NewJournalFile(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     7,    // days
		Compress:   true, // compress old logs
	}
}

type journalEntry struct {
	Time         string              `json:"time"`
	Camera       string              `json:"camera"`
	FrameSeq     uint64              `json:"frameSeq"`
	FrameWidth   int                 `json:"frameWidth"`
	FrameHeight  int                 `json:"frameHeight"`
	Observations []model.Observation `json:"observations"`
}

// Journal appends every non-empty published set to w as one JSON line.
type Journal struct {
	store  *ResultStore
	camera string
	w      io.WriteCloser
}

func NewJournal(store *ResultStore, camera string, w io.WriteCloser) *Journal {
	return &Journal{
		store:  store,
		camera: camera,
		w:      w,
	}
}

// Run writes until ctx is done, then closes the writer. Sets published
// faster than they can be written are coalesced to the newest.
func (j *Journal) Run(ctx context.Context) error {
	sets, cancel := j.store.Subscribe()
	defer cancel()
	defer j.w.Close()

	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info(
				"journal context cancelled",
			)
			return nil

		case set, ok := <-sets:
			if !ok {
				return nil
			}
			if set.Len() == 0 {
				continue
			}
			j.write(set)
		}
	}
}

func (j *Journal) write(set model.ObservationSet) {
	ts := set.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	jsonData, err := json.Marshal(journalEntry{
		Time:         ts.Format(time.RFC3339Nano),
		Camera:       j.camera,
		FrameSeq:     set.FrameSeq,
		FrameWidth:   set.FrameWidth,
		FrameHeight:  set.FrameHeight,
		Observations: set.Observations,
	})
	if err != nil {
		lgr.Logger.Error(
			"error marshaling detections",
			slog.Any("error", err),
		)
		return
	}

	if _, err := j.w.Write(append(jsonData, '\n')); err != nil {
		lgr.Logger.Error(
			"error writing detections",
			slog.Any("error", err),
		)
	}
}
