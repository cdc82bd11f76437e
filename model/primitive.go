package model

import "fmt"

// Rect is a rectangle in view pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) MidX() float64 { return r.X + r.W/2 }
func (r Rect) MidY() float64 { return r.Y + r.H/2 }
func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f,%.1f %.1fx%.1f)", r.X, r.Y, r.W, r.H)
}

type PrimitiveKind int

const (
	BoxPrimitive PrimitiveKind = iota
	IconPrimitive
	LabelPrimitive
)

func (k PrimitiveKind) String() string {
	switch k {
	case BoxPrimitive:
		return "box"
	case IconPrimitive:
		return "icon"
	case LabelPrimitive:
		return "label"
	}
	return "unknown"
}

// Primitive is one drawable produced by a render pass.
type Primitive struct {
	Kind       PrimitiveKind
	Rect       Rect
	Text       string
	Confidence float64
	Image      *OverlayImage
}
