package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/inference"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"golang.org/x/xerrors"
)

func TestSchedulerPublishesResult(t *testing.T) {
	backend := inference.NewFake(inference.Step{
		Observations: []model.Observation{{Label: "bottle", Confidence: 0.93}},
	})
	store := NewResultStore()
	sched := NewScheduler(backend, store)
	sched.Start(context.Background())
	defer sched.Stop()

	closes := atomic.NewInt32(0)
	sched.Submit(newFrame(7, closes))

	eventually(t, func() bool { return store.Published() == 1 })
	set := store.Read()
	test.That(t, set.FrameSeq, test.ShouldEqual, uint64(7))
	test.That(t, set.Observations, test.ShouldHaveLength, 1)
	test.That(t, set.Observations[0].Label, test.ShouldEqual, "bottle")
	eventually(t, func() bool { return closes.Load() == 1 })
	eventually(t, func() bool { return sched.State() == model.Idle })
}

// F1 in flight, F2..F5 arrive: only F1 and F5 are inferred, F2..F4 are
// closed without reaching the backend.
func TestSchedulerSupersedesPendingFrames(t *testing.T) {
	backend := inference.NewFake(inference.Step{})
	backend.Gate = make(chan struct{})
	store := NewResultStore()
	sched := NewScheduler(backend, store)
	sched.Start(context.Background())
	defer sched.Stop()

	closes := atomic.NewInt32(0)
	sched.Submit(newFrame(1, closes))
	eventually(t, func() bool { return len(backend.Calls()) == 1 })
	test.That(t, sched.State(), test.ShouldEqual, model.Busy)

	for seq := uint64(2); seq <= 5; seq++ {
		sched.Submit(newFrame(seq, closes))
	}
	test.That(t, sched.State(), test.ShouldEqual, model.BusyPending)
	test.That(t, closes.Load(), test.ShouldEqual, int32(3))

	backend.Gate <- struct{}{}
	eventually(t, func() bool { return len(backend.Calls()) == 2 })
	backend.Gate <- struct{}{}
	eventually(t, func() bool { return store.Published() == 2 })

	test.That(t, backend.Calls(), test.ShouldResemble, []uint64{1, 5})
	test.That(t, store.Read().FrameSeq, test.ShouldEqual, uint64(5))
	eventually(t, func() bool { return closes.Load() == 5 })

	stats := sched.Stats()
	test.That(t, stats.Submitted, test.ShouldEqual, uint64(5))
	test.That(t, stats.Inferred, test.ShouldEqual, uint64(2))
	test.That(t, stats.Superseded, test.ShouldEqual, uint64(3))
}

func TestSchedulerFailurePublishesEmptySet(t *testing.T) {
	backend := inference.NewFake(
		inference.Step{Observations: []model.Observation{{Label: "cup", Confidence: 0.95}}},
		inference.Step{Err: xerrors.New("model exploded")},
	)
	store := NewResultStore()
	errorStream := make(chan interface{}, 4)
	sched := NewScheduler(backend, store, WithErrorStream(errorStream))
	sched.Start(context.Background())
	defer sched.Stop()

	closes := atomic.NewInt32(0)
	sched.Submit(newFrame(1, closes))
	eventually(t, func() bool { return store.Published() == 1 })
	test.That(t, store.Read().Len(), test.ShouldEqual, 1)

	sched.Submit(newFrame(2, closes))
	eventually(t, func() bool { return store.Published() == 2 })
	set := store.Read()
	test.That(t, set.FrameSeq, test.ShouldEqual, uint64(2))
	test.That(t, set.Len(), test.ShouldEqual, 0)

	select {
	case e := <-errorStream:
		ce, ok := e.(model.CustomError)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ce.Processor, test.ShouldEqual, "inference_scheduler")
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}

	// Still running after a failure.
	sched.Submit(newFrame(3, closes))
	eventually(t, func() bool { return store.Published() == 3 })
	test.That(t, sched.Stats().Failed, test.ShouldBeGreaterThan, uint64(0))
}

func TestSchedulerNeverOverlapsBackendCalls(t *testing.T) {
	backend := inference.NewFake(inference.Step{Delay: time.Millisecond})
	store := NewResultStore()
	sched := NewScheduler(backend, store)
	sched.Start(context.Background())

	closes := atomic.NewInt32(0)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				sched.Submit(newFrame(uint64(p*1000+i), closes))
			}
		}(p)
	}
	wg.Wait()
	sched.Stop()

	test.That(t, backend.MaxConcurrent(), test.ShouldEqual, 1)
	// Every submitted frame was closed exactly once, inferred or not.
	test.That(t, closes.Load(), test.ShouldEqual, int32(800))
}

// Frames arriving far faster than inference never accumulate beyond the
// single pending slot.
func TestSchedulerBoundedBackpressure(t *testing.T) {
	backend := inference.NewFake(inference.Step{})
	backend.Gate = make(chan struct{})
	store := NewResultStore()
	sched := NewScheduler(backend, store)
	sched.Start(context.Background())
	defer sched.Stop()

	closes := atomic.NewInt32(0)
	sched.Submit(newFrame(0, closes))
	eventually(t, func() bool { return len(backend.Calls()) == 1 })

	for seq := uint64(1); seq <= 1000; seq++ {
		sched.Submit(newFrame(seq, closes))
		// everything but the in-flight and the pending frame is closed
		test.That(t, closes.Load(), test.ShouldEqual, int32(seq-1))
	}

	backend.Gate <- struct{}{}
	backend.Gate <- struct{}{}
	eventually(t, func() bool { return store.Published() == 2 })
	test.That(t, backend.Calls(), test.ShouldResemble, []uint64{0, 1000})
}

func TestSchedulerDisabledWithoutBackend(t *testing.T) {
	store := NewResultStore()
	sched := NewScheduler(nil, store)
	sched.Start(context.Background())

	closes := atomic.NewInt32(0)
	for seq := uint64(1); seq <= 10; seq++ {
		sched.Submit(newFrame(seq, closes))
	}
	sched.Stop()

	test.That(t, sched.Disabled(), test.ShouldBeTrue)
	test.That(t, closes.Load(), test.ShouldEqual, int32(10))
	test.That(t, store.Published(), test.ShouldEqual, uint64(0))
	test.That(t, sched.Stats().Rejected, test.ShouldEqual, uint64(10))
}

func TestSchedulerStopClosesPending(t *testing.T) {
	backend := inference.NewFake(inference.Step{})
	backend.Gate = make(chan struct{})
	store := NewResultStore()
	sched := NewScheduler(backend, store)
	sched.Start(context.Background())

	closes := atomic.NewInt32(0)
	sched.Submit(newFrame(1, closes))
	eventually(t, func() bool { return len(backend.Calls()) == 1 })
	sched.Submit(newFrame(2, closes))

	stopped := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopped)
	}()

	// Stop waits for the in-flight call.
	eventually(t, func() bool { return closes.Load() == 1 })
	select {
	case <-stopped:
		t.Fatal("stop returned with inference in flight")
	case <-time.After(20 * time.Millisecond):
	}

	backend.Gate <- struct{}{}
	<-stopped
	test.That(t, closes.Load(), test.ShouldEqual, int32(2))
	test.That(t, backend.Calls(), test.ShouldResemble, []uint64{1})
	test.That(t, store.Published(), test.ShouldEqual, uint64(1))

	// Frames after Stop are rejected and closed.
	sched.Submit(newFrame(3, closes))
	test.That(t, closes.Load(), test.ShouldEqual, int32(3))
}
