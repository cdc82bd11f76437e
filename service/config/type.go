package config

type IService interface {
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetSnapshotsFolder() string
	GetStatsPeriodicTimeout() int

	GetCameraParameters() CameraParameters
	GetDetectorParameters() DetectorParameters
	GetOverlayParameters() OverlayParameters
}

type CameraParameters struct {
	Name   string  `yaml:"name" validate:"required"`
	Source string  `yaml:"source" validate:"required,oneof=webcam synthetic"`
	Device string  `yaml:"device"`
	Width  int     `yaml:"width" validate:"gte=0"`
	Height int     `yaml:"height" validate:"gte=0"`
	FPS    float64 `yaml:"fps" validate:"gte=0"`
}

type DetectorParameters struct {
	Backend                   string  `yaml:"backend" validate:"required,oneof=yolo5 fake none"`
	ModelPath                 string  `yaml:"modelPath"`
	CocoNamesPath             string  `yaml:"cocoNamesPath"`
	InputSize                 int     `yaml:"inputSize" validate:"gte=0"`
	ObjectConfidenceThreshold float32 `yaml:"objectConfidenceThreshold" validate:"gte=0,lte=1"`
	NMSThreshold              float32 `yaml:"nmsThreshold" validate:"gte=0,lte=1"`
	Logging                   bool    `yaml:"logging"`
	DetectionsLogPath         string  `yaml:"detectionsLogPath"`
}

type OverlayParameters struct {
	ImagePath         string `yaml:"imagePath"`
	ShowLabels        bool   `yaml:"showLabels"`
	RenderRefreshRate int    `yaml:"renderRefreshRate" validate:"gte=0"`
	ViewWidth         int    `yaml:"viewWidth" validate:"gte=0"`
	ViewHeight        int    `yaml:"viewHeight" validate:"gte=0"`
	SnapshotPeriod    int    `yaml:"snapshotPeriod" validate:"gte=0"`
}
