package pipeline

import (
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/access"
	"github.com/khaledhikmat/vs-overlay/service/camera"
	"github.com/khaledhikmat/vs-overlay/service/config"
	"github.com/khaledhikmat/vs-overlay/service/data"
	"github.com/khaledhikmat/vs-overlay/service/inference"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"github.com/khaledhikmat/vs-overlay/service/surface"
)

// ServicesFactory carries every external capability the pipeline needs.
// A nil InferenceSvc disables detection.
type ServicesFactory struct {
	CfgSvc       config.IService
	DataSvc      data.IService
	CameraSvc    camera.IService
	InferenceSvc inference.IService
	AccessSvc    access.IService
	SurfaceSvc   surface.IService
}

// Handoff receives ownership of one captured frame. It must not block.
type Handoff func(frame model.Frame)

const streamSendTimeout = time.Second

// emit delivers v on stream unless nobody picks it up in time.
func emit(stream chan interface{}, v interface{}) {
	if stream == nil {
		return
	}
	select {
	case stream <- v:
	case <-time.After(streamSendTimeout):
		lgr.Logger.Debug("stream busy, dropping value")
	}
}
