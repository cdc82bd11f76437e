package camera

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/config"
	"golang.org/x/time/rate"
)

type syntheticService struct {
	params  config.CameraParameters
	limiter *rate.Limiter
	mu      sync.Mutex
	open    bool
	frames  int
}

// NewSynthetic generates RGBA frames at the configured rate. It stands in for
// a device when none is attached.
func NewSynthetic(cfgSvc config.IService) IService {
	params := cfgSvc.GetCameraParameters()
	if params.Width <= 0 || params.Height <= 0 {
		params.Width, params.Height = 640, 480
	}

	limit := rate.Inf
	if params.FPS > 0 {
		limit = rate.Limit(params.FPS)
	}

	return &syntheticService{
		params:  params,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (svc *syntheticService) Name() string {
	return svc.params.Name
}

func (svc *syntheticService) Open(_ context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.open = true
	return nil
}

func (svc *syntheticService) Read(ctx context.Context) (model.Buffer, int, int, error) {
	svc.mu.Lock()
	open := svc.open
	svc.mu.Unlock()
	if !open {
		return nil, 0, 0, ErrNotOpen
	}

	if err := svc.limiter.Wait(ctx); err != nil {
		return nil, 0, 0, err
	}

	svc.mu.Lock()
	svc.frames++
	n := svc.frames
	svc.mu.Unlock()

	w, h := svc.params.Width, svc.params.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	shade := uint8(n % 256)
	fill := color.RGBA{R: shade, G: 64, B: 255 - shade, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	return &model.ImageBuffer{Img: img}, w, h, nil
}

func (svc *syntheticService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.open = false
	return nil
}
