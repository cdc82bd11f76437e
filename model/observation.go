package model

import (
	"image"
	"time"
)

// BoundingBox is normalized to frame space with a top-left origin.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Clamp keeps the box inside the unit square.
func (b BoundingBox) Clamp() BoundingBox {
	x0, y0 := clamp01(b.X), clamp01(b.Y)
	x1, y1 := clamp01(b.X+b.W), clamp01(b.Y+b.H)
	return BoundingBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type Observation struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// ObservationSet is the result of one inference pass over one frame.
type ObservationSet struct {
	FrameSeq     uint64        `json:"frameSeq"`
	FrameWidth   int           `json:"frameWidth"`
	FrameHeight  int           `json:"frameHeight"`
	Timestamp    time.Time     `json:"timestamp"`
	Observations []Observation `json:"observations"`
}

func (s ObservationSet) Len() int {
	return len(s.Observations)
}

// Copy returns a set that shares no backing array with s.
func (s ObservationSet) Copy() ObservationSet {
	c := s
	if s.Observations != nil {
		c.Observations = make([]Observation, len(s.Observations))
		copy(c.Observations, s.Observations)
	}
	return c
}

// OverlayImage is a fully decoded bitmap. A nil *OverlayImage means no icon.
type OverlayImage struct {
	Path   string
	Image  image.Image
	Width  int
	Height int
}

// ScalingPolicy describes how a frame is fitted to the model input.
type ScalingPolicy int

const (
	StretchFill ScalingPolicy = iota
	AspectFit
	AspectCrop
)

func (p ScalingPolicy) String() string {
	switch p {
	case StretchFill:
		return "stretchFill"
	case AspectFit:
		return "aspectFit"
	case AspectCrop:
		return "aspectCrop"
	}
	return "unknown"
}

type SchedulerState int

const (
	Idle SchedulerState = iota
	Busy
	BusyPending
)

func (s SchedulerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case BusyPending:
		return "busyPending"
	}
	return "unknown"
}
