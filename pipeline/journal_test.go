package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/khaledhikmat/vs-overlay/model"
	"go.viam.com/test"
)

type syncBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []string{}
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

func TestJournalWritesNonEmptySets(t *testing.T) {
	store := NewResultStore()
	buf := &syncBuffer{}
	journal := NewJournal(store, "desk", buf)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- journal.Run(ctx) }()

	// wait for the subscription before publishing
	eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.subs) == 1
	})

	store.Publish(model.ObservationSet{FrameSeq: 1})
	store.Publish(model.ObservationSet{
		FrameSeq:     2,
		FrameWidth:   640,
		FrameHeight:  480,
		Observations: []model.Observation{{Label: "person", Confidence: 0.91}},
	})
	eventually(t, func() bool { return len(buf.lines()) == 1 })

	cancel()
	test.That(t, <-done, test.ShouldBeNil)
	test.That(t, buf.closed, test.ShouldBeTrue)

	var entry journalEntry
	test.That(t, json.Unmarshal([]byte(buf.lines()[0]), &entry), test.ShouldBeNil)
	test.That(t, entry.Camera, test.ShouldEqual, "desk")
	test.That(t, entry.FrameSeq, test.ShouldEqual, uint64(2))
	test.That(t, entry.Observations, test.ShouldHaveLength, 1)
	test.That(t, entry.Observations[0].Label, test.ShouldEqual, "person")
}
