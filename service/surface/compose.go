package surface

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/khaledhikmat/vs-overlay/model"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	BoxColor   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	LabelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	LabelFill  = color.RGBA{R: 0, G: 0, B: 0, A: 160}
)

const boxLineWidth = 3

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Compose draws the background filled into bounds and the primitives on top.
// A nil background yields a black canvas.
func Compose(bounds model.Rect, background image.Image, prims []model.Primitive) (image.Image, error) {
	w, h := int(bounds.W), int(bounds.H)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid surface bounds %s", bounds)
	}

	dc := gg.NewContext(w, h)
	dc.SetColor(color.Black)
	dc.Clear()

	if background != nil {
		// Crop to cover, matching the renderer's aspect fill.
		dc.DrawImage(imaging.Fill(background, w, h, imaging.Center, imaging.Linear), 0, 0)
	}

	for _, p := range prims {
		r := p.Rect
		switch p.Kind {
		case model.BoxPrimitive:
			dc.SetColor(BoxColor)
			dc.SetLineWidth(boxLineWidth)
			dc.DrawRectangle(r.X-bounds.X, r.Y-bounds.Y, r.W, r.H)
			dc.Stroke()

		case model.IconPrimitive:
			if p.Image == nil || p.Image.Image == nil || r.Empty() {
				continue
			}
			icon := imaging.Resize(p.Image.Image, int(r.W), int(r.H), imaging.Lanczos)
			dc.DrawImage(icon, int(r.X-bounds.X), int(r.Y-bounds.Y))

		case model.LabelPrimitive:
			dc.SetColor(LabelFill)
			dc.DrawRectangle(r.X-bounds.X, r.Y-bounds.Y, r.W, r.H)
			dc.Fill()
			dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: r.H * 0.7}))
			dc.SetColor(LabelColor)
			dc.DrawStringAnchored(p.Text, r.X-bounds.X+2, r.Y-bounds.Y+r.H/2, 0, 0.5)
		}
	}

	return dc.Image(), nil
}

// backgroundImage extracts a Go image from buffers that can provide one.
func backgroundImage(background model.Buffer) (image.Image, error) {
	if background == nil {
		return nil, nil
	}
	imager, ok := background.(model.Imager)
	if !ok {
		return nil, nil
	}
	return imager.Image()
}
