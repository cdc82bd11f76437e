package mode

import (
	"context"

	"github.com/khaledhikmat/vs-overlay/pipeline"
	"github.com/khaledhikmat/vs-overlay/service/surface"
	"go.uber.org/multierr"
)

// Live shows the camera and its overlay in a desktop window.
func Live(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	if svcs.SurfaceSvc == nil {
		svcs.SurfaceSvc = surface.NewWindow(svcs.CfgSvc)
	}
	err := run(canxCtx, "live", svcs)
	return multierr.Combine(err, svcs.SurfaceSvc.Close())
}
