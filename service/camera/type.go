package camera

import (
	"context"

	"github.com/khaledhikmat/vs-overlay/model"
	"golang.org/x/xerrors"
)

var (
	ErrNoDevice         = xerrors.New("no capture device available")
	ErrPermissionDenied = xerrors.New("capture permission denied")
	ErrNotOpen          = xerrors.New("capture device not open")
)

// IService is a capture device. Read blocks until the next frame at device
// rate; the returned buffer belongs to the caller.
type IService interface {
	Name() string
	Open(ctx context.Context) error
	Read(ctx context.Context) (model.Buffer, int, int, error)
	Close() error
}
