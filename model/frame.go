package model

import (
	"image"
	"time"
)

// Buffer is an opaque pixel buffer owned by whoever currently holds the frame.
type Buffer interface {
	Clone() Buffer
	Close() error
}

// Imager is implemented by buffers that can hand out a Go image copy.
type Imager interface {
	Image() (image.Image, error)
}

type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	Pixels    Buffer
}

// Close releases the pixel buffer. Safe on a zero Frame.
func (f Frame) Close() {
	if f.Pixels != nil {
		_ = f.Pixels.Close()
	}
}

func (f Frame) Clone() Frame {
	c := f
	if f.Pixels != nil {
		c.Pixels = f.Pixels.Clone()
	}
	return c
}

// ImageBuffer adapts an in-memory image to Buffer.
type ImageBuffer struct {
	Img image.Image
}

func (b *ImageBuffer) Clone() Buffer {
	if b == nil || b.Img == nil {
		return &ImageBuffer{}
	}
	src, ok := b.Img.(*image.RGBA)
	if !ok {
		return &ImageBuffer{Img: b.Img}
	}
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return &ImageBuffer{Img: dst}
}

func (b *ImageBuffer) Close() error {
	b.Img = nil
	return nil
}

func (b *ImageBuffer) Image() (image.Image, error) {
	return b.Img, nil
}
