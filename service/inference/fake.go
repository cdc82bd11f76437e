package inference

import (
	"context"
	"sync"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"go.uber.org/atomic"
)

// Step is one scripted inference outcome.
type Step struct {
	Observations []model.Observation
	Err          error
	Delay        time.Duration
}

// FakeService replays Steps in order and repeats the last one. Gate, when
// set, holds each call until a value is received, so tests can pin the
// backend in flight.
type FakeService struct {
	Steps []Step
	Gate  chan struct{}

	mu       sync.Mutex
	calls    int
	seqs     []uint64
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	closed   atomic.Bool
}

func NewFake(steps ...Step) *FakeService {
	return &FakeService{Steps: steps}
}

func (svc *FakeService) Infer(ctx context.Context, frame model.Frame, _ model.ScalingPolicy) (model.ObservationSet, error) {
	n := svc.inFlight.Inc()
	defer svc.inFlight.Dec()
	for {
		seen := svc.maxSeen.Load()
		if n <= seen || svc.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	svc.mu.Lock()
	idx := svc.calls
	svc.calls++
	svc.seqs = append(svc.seqs, frame.Seq)
	svc.mu.Unlock()

	if svc.Gate != nil {
		select {
		case <-svc.Gate:
		case <-ctx.Done():
			return model.ObservationSet{}, ctx.Err()
		}
	}

	step := Step{}
	if len(svc.Steps) > 0 {
		if idx >= len(svc.Steps) {
			idx = len(svc.Steps) - 1
		}
		step = svc.Steps[idx]
	}
	if step.Delay > 0 {
		time.Sleep(step.Delay)
	}
	if step.Err != nil {
		return model.ObservationSet{}, step.Err
	}

	return model.ObservationSet{
		FrameSeq:     frame.Seq,
		FrameWidth:   frame.Width,
		FrameHeight:  frame.Height,
		Timestamp:    time.Now(),
		Observations: append([]model.Observation(nil), step.Observations...),
	}, nil
}

func (svc *FakeService) Close() error {
	svc.closed.Store(true)
	return nil
}

// Calls returns the frame sequence numbers passed to Infer, in order.
func (svc *FakeService) Calls() []uint64 {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]uint64(nil), svc.seqs...)
}

// MaxConcurrent is the highest number of Infer calls seen in flight at once.
func (svc *FakeService) MaxConcurrent() int {
	return int(svc.maxSeen.Load())
}

func (svc *FakeService) Closed() bool {
	return svc.closed.Load()
}
