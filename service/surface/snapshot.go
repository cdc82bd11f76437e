package surface

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/config"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
)

type snapshotService struct {
	bounds model.Rect
	folder string
	period time.Duration

	mu     sync.Mutex
	last   time.Time
	count  int
	closed bool
}

// NewSnapshot writes a composed PNG into the snapshots folder at most once
// per snapshot period. A zero period writes every pass.
func NewSnapshot(cfgSvc config.IService) IService {
	params := cfgSvc.GetOverlayParameters()
	return &snapshotService{
		bounds: model.Rect{W: float64(params.ViewWidth), H: float64(params.ViewHeight)},
		folder: cfgSvc.GetSnapshotsFolder(),
		period: time.Duration(params.SnapshotPeriod) * time.Second,
	}
}

func (svc *snapshotService) Bounds() model.Rect {
	return svc.bounds
}

func (svc *snapshotService) Present(background model.Buffer, prims []model.Primitive) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.closed {
		return ErrClosed
	}
	if !svc.last.IsZero() && time.Since(svc.last) < svc.period {
		return nil
	}

	bg, err := backgroundImage(background)
	if err != nil {
		return fmt.Errorf("reading background: %w", err)
	}

	img, err := Compose(svc.bounds, bg, prims)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(svc.folder, 0o755); err != nil {
		return fmt.Errorf("creating snapshots folder: %w", err)
	}

	svc.count++
	path := filepath.Join(svc.folder, fmt.Sprintf("overlay_%d_%04d.png", time.Now().Unix(), svc.count))
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	svc.last = time.Now()

	lgr.Logger.Debug(
		"snapshot saved",
		slog.String("path", path),
		slog.Int("primitives", len(prims)),
	)
	return nil
}

func (svc *snapshotService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.closed = true
	return nil
}
