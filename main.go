package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-overlay/mode"
	"github.com/khaledhikmat/vs-overlay/pipeline"
	"github.com/khaledhikmat/vs-overlay/service/access"
	"github.com/khaledhikmat/vs-overlay/service/camera"
	"github.com/khaledhikmat/vs-overlay/service/config"
	"github.com/khaledhikmat/vs-overlay/service/data"
	"github.com/khaledhikmat/vs-overlay/service/inference"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"live":     mode.Live,
	"headless": mode.Headless,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file loaded", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	modeType := "live"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Config service
	cfgSvc := config.NewHardCoded()
	if path := os.Getenv("VS_CONFIG"); path != "" {
		yamlSvc, err := config.NewYaml(path)
		if err != nil {
			lgr.Logger.Error("error loading config", slog.String("path", path), slog.Any("error", lgr.Stack(err)))
			panic("error loading config")
		}
		cfgSvc = yamlSvc
	}
	// Data service
	dataSvc := data.NewFilesDB(cfgSvc)
	// Camera service
	cameraSvc := newCamera(cfgSvc)
	// Inference service (nil disables detection)
	inferenceSvc := newInference(cfgSvc)
	if inferenceSvc != nil {
		defer inferenceSvc.Close()
	}
	// Access service
	accessSvc := access.NewFS()

	svcs := pipeline.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      dataSvc,
		CameraSvc:    cameraSvc,
		InferenceSvc: inferenceSvc,
		AccessSvc:    accessSvc,
	}

	lgr.Logger.Info(
		"vs-overlay starting",
		slog.String("mode", modeType),
		slog.String("camera", cfgSvc.GetCameraParameters().Source),
		slog.String("detector", cfgSvc.GetDetectorParameters().Backend),
	)

	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	// Wait for cancellation or mode proc
	select {
	case <-canxCtx.Done():
		lgr.Logger.Info(
			"vs-overlay context cancelled",
		)

	case err := <-modeProcResult:
		if err != nil {
			lgr.Logger.Info(
				"vs-overlay mode processor exited",
				slog.Any("error", xerrors.New(err.Error())),
			)
		}
		canxFn()
		return
	}

	lgr.Logger.Info(
		"vs-overlay is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the mode
	// processor or the shutdown duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case <-timer.C:
		lgr.Logger.Info(
			"vs-overlay shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)

	case err := <-modeProcResult:
		if err != nil {
			lgr.Logger.Info(
				"vs-overlay mode processor exited",
				slog.Any("error", xerrors.New(err.Error())),
			)
		}
	}
}

func newCamera(cfgSvc config.IService) camera.IService {
	if cfgSvc.GetCameraParameters().Source == "synthetic" {
		return camera.NewSynthetic(cfgSvc)
	}
	return camera.NewWebcam(cfgSvc)
}

// newInference loads the configured detector. A detector that cannot start
// disables detection; the rest of the pipeline still runs.
func newInference(cfgSvc config.IService) inference.IService {
	switch cfgSvc.GetDetectorParameters().Backend {
	case "yolo5":
		svc, err := inference.NewYolo5(cfgSvc)
		if err != nil {
			lgr.Logger.Error(
				"detector failed to start, detection disabled",
				slog.Any("error", lgr.Stack(err)),
			)
			return nil
		}
		return svc
	case "fake":
		return inference.NewFake()
	}
	return nil
}
