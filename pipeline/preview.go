package pipeline

import (
	"sync"

	"github.com/khaledhikmat/vs-overlay/model"
)

// Preview holds the most recent captured frame for the render surface.
type Preview struct {
	mu    sync.Mutex
	frame *model.Frame
}

func NewPreview() *Preview {
	return &Preview{}
}

// Offer takes ownership of frame and closes the one it replaces.
func (p *Preview) Offer(frame model.Frame) {
	p.mu.Lock()
	old := p.frame
	p.frame = &frame
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Latest returns a clone the caller must close, or false when nothing has
// been captured yet.
func (p *Preview) Latest() (model.Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return model.Frame{}, false
	}
	return p.frame.Clone(), true
}

// Close releases the held frame.
func (p *Preview) Close() {
	p.mu.Lock()
	old := p.frame
	p.frame = nil
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}
}
