package config

import (
	"fmt"
)

type hardcodedService struct {
}

func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetInputFolder() string {
	return "./settings"
}

func (svc *hardcodedService) GetSnapshotsFolder() string {
	return "./snapshots"
}

func (svc *hardcodedService) GetStatsPeriodicTimeout() int {
	return 30
}

func (svc *hardcodedService) GetCameraParameters() CameraParameters {
	// Photo preset: 4:3 at the highest resolution common webcams deliver.
	return CameraParameters{
		Name:   "default",
		Source: "webcam",
		Device: "0",
		Width:  1920,
		Height: 1440,
		FPS:    30,
	}
}

func (svc *hardcodedService) GetDetectorParameters() DetectorParameters {
	return DetectorParameters{
		Backend:                   "yolo5",
		ModelPath:                 "./yolo5/yolov5s.onnx",
		CocoNamesPath:             "./yolo5/coco.names",
		InputSize:                 640,
		ObjectConfidenceThreshold: 0.25,
		NMSThreshold:              0.45,
		Logging:                   false,
		DetectionsLogPath:         fmt.Sprintf("%s/detections.log", "./logs"),
	}
}

func (svc *hardcodedService) GetOverlayParameters() OverlayParameters {
	return OverlayParameters{
		ImagePath:         "",
		ShowLabels:        false,
		RenderRefreshRate: 30,
		ViewWidth:         1280,
		ViewHeight:        720,
		SnapshotPeriod:    5,
	}
}
