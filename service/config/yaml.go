package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	ShutdownTime         int                `yaml:"shutdownTime" validate:"gte=0"`
	InputFolder          string             `yaml:"inputFolder"`
	SnapshotsFolder      string             `yaml:"snapshotsFolder"`
	StatsPeriodicTimeout int                `yaml:"statsPeriodicTimeout" validate:"gte=0"`
	Camera               CameraParameters   `yaml:"camera"`
	Detector             DetectorParameters `yaml:"detector"`
	Overlay              OverlayParameters  `yaml:"overlay"`
}

type yamlService struct {
	file yamlFile
}

// NewYaml reads settings from a YAML file. Fields left out of the file keep
// the hardcoded defaults.
func NewYaml(path string) (IService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading config %s: %w", path, err)
	}
	return parseYaml(data)
}

func parseYaml(data []byte) (IService, error) {
	file := defaults()
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, xerrors.Errorf("parsing config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(file); err != nil {
		return nil, xerrors.Errorf("invalid config: %w", err)
	}

	return &yamlService{file: file}, nil
}

func defaults() yamlFile {
	def := NewHardCoded()
	return yamlFile{
		ShutdownTime:         def.GetModeMaxShutdownTime(),
		InputFolder:          def.GetInputFolder(),
		SnapshotsFolder:      def.GetSnapshotsFolder(),
		StatsPeriodicTimeout: def.GetStatsPeriodicTimeout(),
		Camera:               def.GetCameraParameters(),
		Detector:             def.GetDetectorParameters(),
		Overlay:              def.GetOverlayParameters(),
	}
}

func (svc *yamlService) GetModeMaxShutdownTime() int {
	return svc.file.ShutdownTime
}

func (svc *yamlService) GetInputFolder() string {
	return svc.file.InputFolder
}

func (svc *yamlService) GetSnapshotsFolder() string {
	return svc.file.SnapshotsFolder
}

func (svc *yamlService) GetStatsPeriodicTimeout() int {
	return svc.file.StatsPeriodicTimeout
}

func (svc *yamlService) GetCameraParameters() CameraParameters {
	return svc.file.Camera
}

func (svc *yamlService) GetDetectorParameters() DetectorParameters {
	return svc.file.Detector
}

func (svc *yamlService) GetOverlayParameters() OverlayParameters {
	return svc.file.Overlay
}
