package surface

import (
	"github.com/khaledhikmat/vs-overlay/model"
	"golang.org/x/xerrors"
)

// ErrClosed is returned by Present once the viewer has gone away.
var ErrClosed = xerrors.New("surface closed")

// IService is where a render pass ends up. Present does not take ownership
// of background.
type IService interface {
	Bounds() model.Rect
	Present(background model.Buffer, prims []model.Primitive) error
	Close() error
}
