package inference

import (
	"context"

	"github.com/khaledhikmat/vs-overlay/model"
	"golang.org/x/xerrors"
)

var (
	ErrDetectionDisabled = xerrors.New("detection disabled")
	ErrUnsupportedPolicy = xerrors.New("unsupported scaling policy")
	ErrUnsupportedFrame  = xerrors.New("unsupported frame buffer")
)

// IService is the detection capability. Infer is never called concurrently
// with itself by the pipeline, but implementations must not assume it.
type IService interface {
	Infer(ctx context.Context, frame model.Frame, policy model.ScalingPolicy) (model.ObservationSet, error)
	Close() error
}
