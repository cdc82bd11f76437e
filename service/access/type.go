package access

import "golang.org/x/xerrors"

var ErrAccessDenied = xerrors.New("access denied")

// Grant is a temporary permission to read one file. Release must be called
// exactly once on every exit path; further calls are no-ops.
type Grant interface {
	Path() string
	Release()
}

type IService interface {
	Acquire(path string) (Grant, error)
	Outstanding() int
}
