package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"go.uber.org/atomic"
)

// ConfidenceThreshold is the strict lower bound for an observation to be drawn.
const ConfidenceThreshold = 0.8

// LabelHeight is the height in view pixels reserved above a box for its label.
const LabelHeight = 18.0

// Gravity controls how the frame is fitted into the view.
type Gravity int

const (
	// AspectFill scales the frame to cover the view and crops the overflow.
	AspectFill Gravity = iota
	// AspectFit letterboxes the frame inside the view.
	AspectFit
	// Stretch maps the frame onto the view ignoring aspect ratio.
	Stretch
)

func (g Gravity) String() string {
	switch g {
	case AspectFill:
		return "aspectFill"
	case AspectFit:
		return "aspectFit"
	case Stretch:
		return "stretch"
	}
	return "unknown"
}

type RendererOptions struct {
	ShowLabels bool
	Gravity    Gravity
}

// Renderer turns the latest observations and overlay into draw primitives.
// It keeps nothing between passes except counters.
type Renderer struct {
	store    *ResultStore
	provider *OverlayImageProvider
	opts     RendererOptions

	passes     atomic.Uint64
	primitives atomic.Uint64
	errors     atomic.Uint64
	startTime  time.Time
}

func NewRenderer(store *ResultStore, provider *OverlayImageProvider, opts RendererOptions) *Renderer {
	return &Renderer{
		store:     store,
		provider:  provider,
		opts:      opts,
		startTime: time.Now(),
	}
}

// Draw reads the store and the overlay once and renders them into view.
func (r *Renderer) Draw(view model.Rect) []model.Primitive {
	set := r.store.Read()

	var img *model.OverlayImage
	if r.provider != nil {
		img = r.provider.Current()
	}

	prims := r.Render(view, set, img)
	r.passes.Inc()
	r.primitives.Add(uint64(len(prims)))
	return prims
}

// Render is a pure function of its inputs.
func (r *Renderer) Render(view model.Rect, set model.ObservationSet, img *model.OverlayImage) []model.Primitive {
	prims := []model.Primitive{}
	if view.Empty() {
		return prims
	}

	for _, obs := range set.Observations {
		if !(obs.Confidence > ConfidenceThreshold) {
			continue
		}

		rect := r.project(view, set.FrameWidth, set.FrameHeight, obs.Box)
		prims = append(prims, model.Primitive{
			Kind:       model.BoxPrimitive,
			Rect:       rect,
			Confidence: obs.Confidence,
		})

		if img != nil {
			side := 2 * rect.W
			prims = append(prims, model.Primitive{
				Kind:       model.IconPrimitive,
				Rect:       model.Rect{X: rect.MidX() - side/2, Y: rect.Y, W: side, H: side},
				Confidence: obs.Confidence,
				Image:      img,
			})
		}

		if r.opts.ShowLabels {
			prims = append(prims, model.Primitive{
				Kind:       model.LabelPrimitive,
				Rect:       model.Rect{X: rect.X, Y: rect.Y - LabelHeight, W: rect.W, H: LabelHeight},
				Text:       fmt.Sprintf("%s %.0f%%", obs.Label, obs.Confidence*100),
				Confidence: obs.Confidence,
			})
		}
	}

	return prims
}

// project maps a normalized frame box to view pixels. A set without a frame
// size is treated as already matching the view.
func (r *Renderer) project(view model.Rect, fw, fh int, box model.BoundingBox) model.Rect {
	dw, dh := view.W, view.H
	if fw > 0 && fh > 0 {
		sx := view.W / float64(fw)
		sy := view.H / float64(fh)
		switch r.opts.Gravity {
		case AspectFill:
			s := math.Max(sx, sy)
			dw, dh = float64(fw)*s, float64(fh)*s
		case AspectFit:
			s := math.Min(sx, sy)
			dw, dh = float64(fw)*s, float64(fh)*s
		}
	}

	ox := view.X + (view.W-dw)/2
	oy := view.Y + (view.H-dh)/2
	return model.Rect{
		X: ox + box.X*dw,
		Y: oy + box.Y*dh,
		W: box.W * dw,
		H: box.H * dh,
	}
}

// RecordError counts a failed presentation of a render pass.
func (r *Renderer) RecordError() {
	r.errors.Inc()
}

func (r *Renderer) Stats() model.RendererStats {
	return model.RendererStats{
		Name:       "overlayRenderer",
		Passes:     r.passes.Load(),
		Primitives: r.primitives.Load(),
		Errors:     r.errors.Load(),
		Uptime:     int64(time.Since(r.startTime).Seconds()),
	}
}
