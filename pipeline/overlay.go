package pipeline

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sync"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/access"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"go.uber.org/atomic"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

// OverlayImageProvider loads the user selected icon off the render path.
// Only the most recent selection may publish.
type OverlayImageProvider struct {
	accessSvc access.IService

	mu         sync.Mutex
	current    atomic.Pointer[model.OverlayImage]
	generation uint64
	loads      sync.WaitGroup
}

func NewOverlayImageProvider(accessSvc access.IService) *OverlayImageProvider {
	return &OverlayImageProvider{
		accessSvc: accessSvc,
	}
}

// Select starts loading path and returns immediately.
func (p *OverlayImageProvider) Select(path string) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	p.loads.Add(1)
	go func() {
		defer p.loads.Done()
		p.load(gen, path)
	}()
}

// Current returns the decoded overlay, or nil when none is set.
func (p *OverlayImageProvider) Current() *model.OverlayImage {
	return p.current.Load()
}

// Clear drops the overlay and invalidates any load in progress.
func (p *OverlayImageProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.current.Store(nil)
}

// Wait blocks until every started load has finished.
func (p *OverlayImageProvider) Wait() {
	p.loads.Wait()
}

func (p *OverlayImageProvider) load(gen uint64, path string) {
	grant, err := p.accessSvc.Acquire(path)
	if err != nil {
		// The current overlay stays as it was.
		lgr.Logger.Warn(
			"overlay access not granted",
			slog.String("path", path),
			slog.Any("error", lgr.Stack(err)),
		)
		return
	}
	defer grant.Release()

	img, err := decodeOverlay(grant.Path())
	if err != nil {
		lgr.Logger.Warn(
			"overlay decode failed, clearing overlay",
			slog.String("path", path),
			slog.Any("error", lgr.Stack(err)),
		)
		p.publish(gen, nil)
		return
	}
	img.Path = path

	if p.publish(gen, img) {
		lgr.Logger.Info(
			"overlay selected",
			slog.String("path", path),
			slog.Int("width", img.Width),
			slog.Int("height", img.Height),
		)
	}
}

func (p *OverlayImageProvider) publish(gen uint64, img *model.OverlayImage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		lgr.Logger.Debug(
			"overlay load superseded",
			slog.Uint64("generation", gen),
		)
		return false
	}
	p.current.Store(img)
	return true
}

// decodeOverlay fully decodes the file into an RGBA bitmap.
func decodeOverlay(path string) (*model.OverlayImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening overlay: %w", err)
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, xerrors.Errorf("decoding overlay: %w", err)
	}

	b := src.Bounds()
	if b.Empty() {
		return nil, xerrors.Errorf("overlay %s has no pixels", format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	return &model.OverlayImage{
		Image:  dst,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}
