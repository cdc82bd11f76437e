package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/camera"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"go.uber.org/atomic"
	"golang.org/x/xerrors"
)

var ErrCaptureUnavailable = xerrors.New("capture unavailable")

// readBackoff paces the loop when the device keeps failing reads.
const readBackoff = 10 * time.Millisecond

// FrameSource pulls frames from the capture device at device rate and hands
// each one to a single consumer. It never buffers a frame itself.
type FrameSource struct {
	cameraSvc camera.IService
	handoff   Handoff

	seq    atomic.Uint64
	frames atomic.Int64
	errors atomic.Int64
}

func NewFrameSource(cameraSvc camera.IService, handoff Handoff) *FrameSource {
	return &FrameSource{
		cameraSvc: cameraSvc,
		handoff:   handoff,
	}
}

// LastSeq is the sequence number of the most recent frame handed off.
func (fs *FrameSource) LastSeq() uint64 {
	return fs.seq.Load()
}

// Run captures until ctx is done. If the device cannot be opened the
// failure is reported once and ErrCaptureUnavailable is returned; there is
// no retry.
func (fs *FrameSource) Run(ctx context.Context, errorStream chan interface{}, statsStream chan interface{}) error {
	name := fs.cameraSvc.Name()

	if err := fs.cameraSvc.Open(ctx); err != nil {
		lgr.Logger.Error(
			"capture device unavailable",
			slog.String("camera", name),
			slog.Any("error", lgr.Stack(err)),
		)
		emit(errorStream, model.GenError("frame_source",
			err,
			map[string]interface{}{"camera": name},
			"error opening capture device"))
		return fmt.Errorf("%s: %w: %w", name, ErrCaptureUnavailable, err)
	}
	defer fs.cameraSvc.Close()

	startTime := time.Now()
	defer func() {
		uptime := int64(time.Since(startTime).Seconds())
		fps := 0
		if uptime > 0 {
			fps = int(fs.frames.Load() / uptime)
		}
		emit(statsStream, model.FramerStats{
			Name:      "frameSource",
			Camera:    name,
			Frames:    int(fs.frames.Load()),
			Errors:    int(fs.errors.Load()),
			Uptime:    uptime,
			FPS:       fps,
			Timestamp: time.Now().Unix(),
		})
	}()

	lgr.Logger.Info(
		"frame source started",
		slog.String("camera", name),
	)

	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info(
				"frame source context cancelled",
				slog.String("camera", name),
			)
			return nil
		default:
		}

		pixels, w, h, err := fs.cameraSvc.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			fs.errors.Inc()
			lgr.Logger.Debug(
				"frame read failed",
				slog.String("camera", name),
				slog.Any("error", err),
			)
			select {
			case <-ctx.Done():
			case <-time.After(readBackoff):
			}
			continue
		}

		frame := model.Frame{
			Seq:       fs.seq.Inc(),
			Timestamp: time.Now(),
			Width:     w,
			Height:    h,
			Pixels:    pixels,
		}
		fs.frames.Inc()

		// The consumer owns the frame from here on.
		fs.handoff(frame)
	}
}
