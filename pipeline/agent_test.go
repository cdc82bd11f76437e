package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/access"
	"github.com/khaledhikmat/vs-overlay/service/camera"
	"github.com/khaledhikmat/vs-overlay/service/config"
	"github.com/khaledhikmat/vs-overlay/service/inference"
	"github.com/khaledhikmat/vs-overlay/service/surface"
	"go.viam.com/test"
)

type testConfig struct {
	config.IService
	overlay  config.OverlayParameters
	detector config.DetectorParameters
}

func (c testConfig) GetOverlayParameters() config.OverlayParameters {
	return c.overlay
}

func (c testConfig) GetDetectorParameters() config.DetectorParameters {
	return c.detector
}

func newTestConfig(imagePath string, logPath string) testConfig {
	base := config.NewHardCoded()
	overlay := base.GetOverlayParameters()
	overlay.ImagePath = imagePath
	overlay.RenderRefreshRate = 200
	detector := base.GetDetectorParameters()
	detector.Backend = "fake"
	detector.Logging = logPath != ""
	detector.DetectionsLogPath = logPath
	return testConfig{IService: base, overlay: overlay, detector: detector}
}

type agentRun struct {
	cancel      context.CancelFunc
	done        chan error
	errorStream chan interface{}
	statsStream chan interface{}
}

func startAgent(svcs ServicesFactory) *agentRun {
	ctx, cancel := context.WithCancel(context.Background())
	run := &agentRun{
		cancel:      cancel,
		done:        make(chan error, 1),
		errorStream: make(chan interface{}, 16),
		statsStream: make(chan interface{}, 16),
	}
	go func() {
		run.done <- Agent(ctx, svcs, run.errorStream, run.statsStream)
	}()
	return run
}

func (r *agentRun) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(3 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func hasPass(svc *surface.FakeService, kinds ...model.PrimitiveKind) bool {
	for _, pass := range svc.Passes() {
		if len(pass) != len(kinds) {
			continue
		}
		match := true
		for i, p := range pass {
			if p.Kind != kinds[i] {
				match = false
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestAgentDrawsDetectionsWithOverlay(t *testing.T) {
	dir := t.TempDir()
	iconPath := writePNG(t, dir, "icon.png", 6, 6)

	accessSvc := access.NewFS(dir)
	cam := &camera.FakeService{Frames: 30, Width: 64, Height: 48}
	backend := inference.NewFake(inference.Step{
		Observations: []model.Observation{
			{Label: "cup", Confidence: 0.95, Box: model.BoundingBox{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}},
			{Label: "cat", Confidence: 0.4, Box: model.BoundingBox{X: 0.1, Y: 0.1, W: 0.1, H: 0.1}},
		},
	})
	surf := surface.NewFake(model.Rect{W: 640, H: 480})

	run := startAgent(ServicesFactory{
		CfgSvc:       newTestConfig(iconPath, filepath.Join(dir, "detections.log")),
		CameraSvc:    cam,
		InferenceSvc: backend,
		AccessSvc:    accessSvc,
		SurfaceSvc:   surf,
	})

	eventually(t, func() bool {
		return hasPass(surf, model.BoxPrimitive, model.IconPrimitive)
	})
	test.That(t, surf.Backgrounds(), test.ShouldBeGreaterThan, 0)

	run.stop(t)
	test.That(t, backend.MaxConcurrent(), test.ShouldEqual, 1)
	test.That(t, cam.Closed(), test.ShouldBeTrue)
	test.That(t, accessSvc.Outstanding(), test.ShouldEqual, 0)
}

func TestAgentWithoutDetection(t *testing.T) {
	cam := &camera.FakeService{Frames: 10}
	surf := surface.NewFake(model.Rect{W: 320, H: 240})

	run := startAgent(ServicesFactory{
		CfgSvc:     newTestConfig("", ""),
		CameraSvc:  cam,
		AccessSvc:  access.NewFake(),
		SurfaceSvc: surf,
	})

	eventually(t, func() bool { return surf.Backgrounds() > 0 })
	for _, pass := range surf.Passes() {
		test.That(t, pass, test.ShouldHaveLength, 0)
	}
	run.stop(t)
}

func TestAgentKeepsRenderingWhenCaptureFails(t *testing.T) {
	cam := &camera.FakeService{OpenErr: camera.ErrNoDevice}
	surf := surface.NewFake(model.Rect{W: 320, H: 240})

	run := startAgent(ServicesFactory{
		CfgSvc:       newTestConfig("", ""),
		CameraSvc:    cam,
		InferenceSvc: inference.NewFake(),
		AccessSvc:    access.NewFake(),
		SurfaceSvc:   surf,
	})

	select {
	case e := <-run.errorStream:
		test.That(t, e.(model.CustomError).Processor, test.ShouldEqual, "frame_source")
	case <-time.After(2 * time.Second):
		t.Fatal("capture failure not reported")
	}

	eventually(t, func() bool { return len(surf.Passes()) > 5 })
	test.That(t, surf.Backgrounds(), test.ShouldEqual, 0)
	test.That(t, cam.Opens(), test.ShouldEqual, 1)
	run.stop(t)
}

func TestAgentStopsWhenSurfaceCloses(t *testing.T) {
	surf := surface.NewFake(model.Rect{W: 320, H: 240})

	run := startAgent(ServicesFactory{
		CfgSvc:     newTestConfig("", ""),
		CameraSvc:  &camera.FakeService{Frames: 5},
		AccessSvc:  access.NewFake(),
		SurfaceSvc: surf,
	})

	eventually(t, func() bool { return len(surf.Passes()) > 0 })
	test.That(t, surf.Close(), test.ShouldBeNil)

	select {
	case err := <-run.done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(3 * time.Second):
		t.Fatal("agent kept running after surface closed")
	}
	run.cancel()
}
