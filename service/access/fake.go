package access

import (
	"sync"

	"go.uber.org/atomic"
)

// FakeService grants everything except the denied paths and records what was
// acquired.
type FakeService struct {
	mu          sync.Mutex
	denied      map[string]bool
	acquired    []string
	outstanding atomic.Int64
}

func NewFake(denied ...string) *FakeService {
	svc := &FakeService{denied: map[string]bool{}}
	for _, d := range denied {
		svc.denied[d] = true
	}
	return svc
}

func (svc *FakeService) Acquire(path string) (Grant, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.denied[path] {
		return nil, ErrAccessDenied
	}
	svc.acquired = append(svc.acquired, path)
	svc.outstanding.Inc()
	return &fakeGrant{path: path, svc: svc}, nil
}

func (svc *FakeService) Outstanding() int {
	return int(svc.outstanding.Load())
}

func (svc *FakeService) Acquired() []string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]string(nil), svc.acquired...)
}

type fakeGrant struct {
	path string
	svc  *FakeService
	once sync.Once
}

func (g *fakeGrant) Path() string {
	return g.path
}

func (g *fakeGrant) Release() {
	g.once.Do(func() {
		g.svc.outstanding.Dec()
	})
}
