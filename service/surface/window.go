package surface

import (
	"fmt"
	"sync"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/config"
	"gocv.io/x/gocv"
)

const windowTitle = "vs-overlay"

type windowService struct {
	bounds model.Rect
	window *gocv.Window

	mu     sync.Mutex
	closed bool
}

// NewWindow opens a desktop window. Pressing q or Esc in it closes the
// surface.
func NewWindow(cfgSvc config.IService) IService {
	params := cfgSvc.GetOverlayParameters()
	window := gocv.NewWindow(windowTitle)
	window.ResizeWindow(params.ViewWidth, params.ViewHeight)

	return &windowService{
		bounds: model.Rect{W: float64(params.ViewWidth), H: float64(params.ViewHeight)},
		window: window,
	}
}

func (svc *windowService) Bounds() model.Rect {
	return svc.bounds
}

func (svc *windowService) Present(background model.Buffer, prims []model.Primitive) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.closed {
		return ErrClosed
	}

	bg, err := backgroundImage(background)
	if err != nil {
		return fmt.Errorf("reading background: %w", err)
	}

	img, err := Compose(svc.bounds, bg, prims)
	if err != nil {
		return err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("converting composed image: %w", err)
	}
	defer mat.Close() // Crucial to close the image to avoid memory leaks

	svc.window.IMShow(mat)
	if key := svc.window.WaitKey(1); key == 'q' || key == 27 {
		svc.closed = true
		return ErrClosed
	}
	return nil
}

func (svc *windowService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.closed = true
	return svc.window.Close()
}
