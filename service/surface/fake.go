package surface

import (
	"sync"

	"github.com/khaledhikmat/vs-overlay/model"
)

// FakeService records every presented pass.
type FakeService struct {
	View model.Rect
	Err  error

	mu          sync.Mutex
	passes      [][]model.Primitive
	backgrounds int
	closed      bool
}

func NewFake(view model.Rect) *FakeService {
	return &FakeService{View: view}
}

func (svc *FakeService) Bounds() model.Rect {
	return svc.View
}

func (svc *FakeService) Present(background model.Buffer, prims []model.Primitive) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.closed {
		return ErrClosed
	}
	if background != nil {
		svc.backgrounds++
	}
	svc.passes = append(svc.passes, append([]model.Primitive(nil), prims...))
	return svc.Err
}

func (svc *FakeService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.closed = true
	return nil
}

// Passes returns a copy of the presented primitive lists.
func (svc *FakeService) Passes() [][]model.Primitive {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([][]model.Primitive(nil), svc.passes...)
}

// Backgrounds counts passes that carried a background frame.
func (svc *FakeService) Backgrounds() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.backgrounds
}
