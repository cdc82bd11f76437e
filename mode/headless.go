package mode

import (
	"context"

	"github.com/khaledhikmat/vs-overlay/pipeline"
	"github.com/khaledhikmat/vs-overlay/service/surface"
	"go.uber.org/multierr"
)

// Headless runs the same pipeline without a display and writes periodic
// PNG snapshots of the composed overlay instead.
func Headless(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	if svcs.SurfaceSvc == nil {
		svcs.SurfaceSvc = surface.NewSnapshot(svcs.CfgSvc)
	}
	err := run(canxCtx, "headless", svcs)
	return multierr.Combine(err, svcs.SurfaceSvc.Close())
}
