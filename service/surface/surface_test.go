package surface

import (
	"image"
	"image/color"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"go.viam.com/test"
)

func TestMain(m *testing.M) {
	lgr.Logger = lgr.New(io.Discard, io.Discard, slog.LevelError)
	os.Exit(m.Run())
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestComposeDrawsPrimitives(t *testing.T) {
	bounds := model.Rect{W: 200, H: 100}
	red := color.RGBA{R: 255, A: 255}
	icon := &model.OverlayImage{Image: solid(4, 4, red), Width: 4, Height: 4}

	prims := []model.Primitive{
		{Kind: model.BoxPrimitive, Rect: model.Rect{X: 20, Y: 20, W: 40, H: 40}},
		{Kind: model.IconPrimitive, Rect: model.Rect{X: 120, Y: 20, W: 40, H: 40}, Image: icon},
		{Kind: model.LabelPrimitive, Rect: model.Rect{X: 20, Y: 70, W: 60, H: 18}, Text: "cup 90%"},
	}

	img, err := Compose(bounds, nil, prims)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 200)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 100)

	r, g, b, _ := img.At(20, 40).RGBA()
	test.That(t, g>>8, test.ShouldBeGreaterThan, uint32(200))
	test.That(t, r>>8, test.ShouldBeLessThan, uint32(50))
	test.That(t, b>>8, test.ShouldBeLessThan, uint32(50))

	r, g, _, _ = img.At(140, 40).RGBA()
	test.That(t, r>>8, test.ShouldBeGreaterThan, uint32(200))
	test.That(t, g>>8, test.ShouldBeLessThan, uint32(50))

	// untouched canvas stays black
	r, g, b, _ = img.At(190, 5).RGBA()
	test.That(t, r+g+b, test.ShouldEqual, uint32(0))
}

func TestComposeFillsBackground(t *testing.T) {
	bg := solid(40, 30, color.RGBA{B: 255, A: 255})
	img, err := Compose(model.Rect{W: 160, H: 90}, bg, nil)
	test.That(t, err, test.ShouldBeNil)

	for _, p := range []image.Point{{0, 0}, {159, 89}, {80, 45}} {
		_, _, b, _ := img.At(p.X, p.Y).RGBA()
		test.That(t, b>>8, test.ShouldBeGreaterThan, uint32(200))
	}
}

func TestComposeRejectsEmptyBounds(t *testing.T) {
	_, err := Compose(model.Rect{}, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSnapshotWritesPNGPerPeriod(t *testing.T) {
	dir := t.TempDir()
	svc := &snapshotService{
		bounds: model.Rect{W: 64, H: 48},
		folder: filepath.Join(dir, "snaps"),
		period: time.Hour,
	}

	bg := &model.ImageBuffer{Img: solid(64, 48, color.RGBA{G: 128, A: 255})}
	prims := []model.Primitive{{Kind: model.BoxPrimitive, Rect: model.Rect{X: 4, Y: 4, W: 10, H: 10}}}

	test.That(t, svc.Present(bg, prims), test.ShouldBeNil)
	test.That(t, svc.Present(bg, prims), test.ShouldBeNil)

	entries, err := os.ReadDir(filepath.Join(dir, "snaps"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldHaveLength, 1)

	f, err := os.Open(filepath.Join(dir, "snaps", entries[0].Name()))
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	cfgImg, _, err := image.DecodeConfig(f)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfgImg.Width, test.ShouldEqual, 64)
	test.That(t, cfgImg.Height, test.ShouldEqual, 48)

	test.That(t, svc.Close(), test.ShouldBeNil)
	test.That(t, svc.Present(bg, prims), test.ShouldEqual, ErrClosed)
}

func TestFakeRecordsPasses(t *testing.T) {
	svc := NewFake(model.Rect{W: 10, H: 10})
	test.That(t, svc.Present(nil, []model.Primitive{{}}), test.ShouldBeNil)
	test.That(t, svc.Passes(), test.ShouldHaveLength, 1)
	test.That(t, svc.Backgrounds(), test.ShouldEqual, 0)
	test.That(t, svc.Close(), test.ShouldBeNil)
	test.That(t, svc.Present(nil, nil), test.ShouldEqual, ErrClosed)
}
