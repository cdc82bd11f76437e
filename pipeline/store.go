package pipeline

import (
	"sync"

	"github.com/khaledhikmat/vs-overlay/model"
	"go.uber.org/atomic"
)

// ResultStore holds the most recently completed ObservationSet. Publish swaps
// a pointer to a private copy, so readers see either the old set or the new
// one, never a mix.
type ResultStore struct {
	current   atomic.Pointer[model.ObservationSet]
	published atomic.Uint64

	mu   sync.Mutex
	subs map[int]chan model.ObservationSet
	next int
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		subs: map[int]chan model.ObservationSet{},
	}
}

func (s *ResultStore) Publish(set model.ObservationSet) {
	c := set.Copy()
	if c.Observations == nil {
		c.Observations = []model.Observation{}
	}
	s.current.Store(&c)
	s.published.Inc()

	s.mu.Lock()
	for _, ch := range s.subs {
		offer(ch, c)
	}
	s.mu.Unlock()
}

// Read returns the latest set, or an empty set before the first Publish.
// Callers must treat the returned Observations as read-only.
func (s *ResultStore) Read() model.ObservationSet {
	p := s.current.Load()
	if p == nil {
		return model.ObservationSet{Observations: []model.Observation{}}
	}
	return *p
}

// Published counts Publish calls.
func (s *ResultStore) Published() uint64 {
	return s.published.Load()
}

// Subscribe returns a channel that always holds at most the newest set not
// yet received. A slow subscriber misses intermediate sets, never the last.
func (s *ResultStore) Subscribe() (<-chan model.ObservationSet, func()) {
	ch := make(chan model.ObservationSet, 1)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// offer replaces whatever is buffered with v. Only the publisher sends, and
// it holds s.mu, so the second send cannot block.
func offer(ch chan model.ObservationSet, v model.ObservationSet) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
