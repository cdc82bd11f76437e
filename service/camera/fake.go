package camera

import (
	"context"
	"image"
	"sync"

	"github.com/khaledhikmat/vs-overlay/model"
)

// FakeService is a scripted device for tests. OpenErr fails Open; otherwise
// Read serves Frames frames then blocks until the context ends.
type FakeService struct {
	OpenErr error
	Frames  int
	Width   int
	Height  int

	mu     sync.Mutex
	opens  int
	reads  int
	closed bool
}

func (svc *FakeService) Name() string {
	return "fake"
}

func (svc *FakeService) Open(_ context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.opens++
	return svc.OpenErr
}

func (svc *FakeService) Read(ctx context.Context) (model.Buffer, int, int, error) {
	svc.mu.Lock()
	if svc.reads >= svc.Frames {
		svc.mu.Unlock()
		<-ctx.Done()
		return nil, 0, 0, ctx.Err()
	}
	svc.reads++
	svc.mu.Unlock()

	w, h := svc.Width, svc.Height
	if w == 0 || h == 0 {
		w, h = 4, 3
	}
	return &model.ImageBuffer{Img: image.NewRGBA(image.Rect(0, 0, w, h))}, w, h, nil
}

func (svc *FakeService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.closed = true
	return nil
}

func (svc *FakeService) Opens() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.opens
}

func (svc *FakeService) Closed() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.closed
}
