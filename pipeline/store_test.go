package pipeline

import (
	"fmt"
	"sync"
	"testing"

	"github.com/khaledhikmat/vs-overlay/model"
	"go.viam.com/test"
)

func TestStoreReadBeforePublish(t *testing.T) {
	store := NewResultStore()
	set := store.Read()
	test.That(t, set.Observations, test.ShouldNotBeNil)
	test.That(t, set.Len(), test.ShouldEqual, 0)
	test.That(t, store.Published(), test.ShouldEqual, uint64(0))
}

func TestStorePublishIsolatesCaller(t *testing.T) {
	store := NewResultStore()
	obs := []model.Observation{{Label: "bag", Confidence: 0.9}}
	store.Publish(model.ObservationSet{FrameSeq: 1, Observations: obs})

	obs[0].Label = "mutated"
	test.That(t, store.Read().Observations[0].Label, test.ShouldEqual, "bag")
	test.That(t, store.Read().FrameSeq, test.ShouldEqual, uint64(1))
}

// Every set written by one publisher has all labels equal to its own
// sequence number; a torn read would mix labels from two publishes.
func TestStoreAtomicUnderStress(t *testing.T) {
	store := NewResultStore()
	const publishes = 2000
	const size = 16

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= publishes; i++ {
			obs := make([]model.Observation, size)
			for j := range obs {
				obs[j] = model.Observation{Label: fmt.Sprint(i), Confidence: float64(i)}
			}
			store.Publish(model.ObservationSet{FrameSeq: uint64(i), Observations: obs})
		}
	}()

	errs := make(chan string, 4)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < publishes; i++ {
				set := store.Read()
				if set.Len() == 0 {
					continue
				}
				want := fmt.Sprint(set.FrameSeq)
				if set.Len() != size {
					errs <- fmt.Sprintf("seq %d has %d observations", set.FrameSeq, set.Len())
					return
				}
				for _, o := range set.Observations {
					if o.Label != want {
						errs <- fmt.Sprintf("seq %d contains label %s", set.FrameSeq, o.Label)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
	test.That(t, store.Read().FrameSeq, test.ShouldEqual, uint64(publishes))
}

func TestStoreSubscribeLatestWins(t *testing.T) {
	store := NewResultStore()
	ch, cancel := store.Subscribe()

	store.Publish(model.ObservationSet{FrameSeq: 1})
	store.Publish(model.ObservationSet{FrameSeq: 2})
	store.Publish(model.ObservationSet{FrameSeq: 3})

	got := <-ch
	test.That(t, got.FrameSeq, test.ShouldEqual, uint64(3))

	select {
	case extra := <-ch:
		t.Fatalf("unexpected buffered set %d", extra.FrameSeq)
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	test.That(t, open, test.ShouldBeFalse)

	store.Publish(model.ObservationSet{FrameSeq: 4})
}
