package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"github.com/khaledhikmat/vs-overlay/service/surface"
	"go.opentelemetry.io/otel"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/khaledhikmat/vs-overlay/pipeline"

// Agent runs the pipeline for one camera: capture on one goroutine, inference
// on the scheduler's worker and drawing on the render loop. It returns when
// ctx is done or the surface is closed.
func Agent(canxCtx context.Context,
	svcs ServicesFactory,
	errorStream chan interface{},
	statsStream chan interface{}) error {
	startTime := time.Now()
	cameraName := svcs.CameraSvc.Name()
	overlayParams := svcs.CfgSvc.GetOverlayParameters()
	detectorParams := svcs.CfgSvc.GetDetectorParameters()

	store := NewResultStore()
	provider := NewOverlayImageProvider(svcs.AccessSvc)
	preview := NewPreview()
	sched := NewScheduler(svcs.InferenceSvc, store,
		WithTracer(otel.Tracer(tracerName)),
		WithErrorStream(errorStream))
	renderer := NewRenderer(store, provider, RendererOptions{
		ShowLabels: overlayParams.ShowLabels,
	})

	source := NewFrameSource(svcs.CameraSvc, func(frame model.Frame) {
		preview.Offer(frame.Clone())
		sched.Submit(frame)
	})

	lgr.Logger.Info(
		"agent starting....",
		slog.String("camera", cameraName),
		slog.Bool("detection", !sched.Disabled()),
		slog.String("overlay", overlayParams.ImagePath),
		slog.Bool("labels", overlayParams.ShowLabels),
	)

	if overlayParams.ImagePath != "" {
		provider.Select(overlayParams.ImagePath)
	}

	g, gctx := errgroup.WithContext(canxCtx)
	sched.Start(gctx)

	capturing := atomic.NewBool(true)
	g.Go(func() error {
		err := source.Run(gctx, errorStream, statsStream)
		if errors.Is(err, ErrCaptureUnavailable) {
			// The overlay keeps rendering without frames.
			capturing.Store(false)
			return nil
		}
		return err
	})

	if overlayParams.ImagePath != "" {
		g.Go(func() error {
			if err := watchOverlay(gctx, overlayParams.ImagePath, provider); err != nil {
				lgr.Logger.Warn(
					"overlay watcher unavailable",
					slog.Any("error", err),
				)
			}
			return nil
		})
	}

	if detectorParams.Logging && !sched.Disabled() {
		journal := NewJournal(store, cameraName, NewJournalFile(detectorParams.DetectionsLogPath))
		g.Go(func() error {
			return journal.Run(gctx)
		})
	}

	g.Go(func() error {
		return renderLoop(gctx, svcs, renderer, preview, func() {
			emit(statsStream, sched.Stats())
			emit(statsStream, renderer.Stats())
			emit(statsStream, pipelineStats(cameraName, !sched.Disabled(), capturing.Load(), source.LastSeq(), startTime))
		})
	})

	err := g.Wait()

	sched.Stop()
	provider.Wait()
	preview.Close()

	if errors.Is(err, surface.ErrClosed) {
		lgr.Logger.Info(
			"render surface closed",
		)
		return nil
	}
	return err
}

// renderLoop draws at the configured refresh rate and reports stats every
// stats period.
func renderLoop(ctx context.Context, svcs ServicesFactory, renderer *Renderer, preview *Preview, report func()) error {
	overlayParams := svcs.CfgSvc.GetOverlayParameters()
	refresh := overlayParams.RenderRefreshRate
	if refresh <= 0 {
		refresh = 30
	}

	ticker := time.NewTicker(time.Second / time.Duration(refresh))
	defer ticker.Stop()

	statsPeriod := time.Duration(svcs.CfgSvc.GetStatsPeriodicTimeout()) * time.Second
	if statsPeriod <= 0 {
		statsPeriod = 30 * time.Second
	}
	statsTicker := time.NewTicker(statsPeriod)
	defer statsTicker.Stop()
	defer report()

	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info(
				"render loop context cancelled",
			)
			return nil

		case <-statsTicker.C:
			report()

		case <-ticker.C:
			view := svcs.SurfaceSvc.Bounds()
			prims := renderer.Draw(view)

			frame, ok := preview.Latest()
			var err error
			if ok {
				err = svcs.SurfaceSvc.Present(frame.Pixels, prims)
				frame.Close()
			} else {
				err = svcs.SurfaceSvc.Present(nil, prims)
			}

			if errors.Is(err, surface.ErrClosed) {
				return err
			}
			if err != nil {
				renderer.RecordError()
				lgr.Logger.Warn(
					"render pass failed",
					slog.Any("error", err),
				)
			}
		}
	}
}
