package access

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/xerrors"
)

type fsService struct {
	roots       []string
	outstanding atomic.Int64
}

// NewFS grants read access to regular files. When roots are given, only
// files under one of them are granted.
func NewFS(roots ...string) IService {
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			clean = append(clean, abs)
		}
	}
	return &fsService{roots: clean}
}

func (svc *fsService) Acquire(path string) (Grant, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, xerrors.Errorf("resolving %s: %w", path, err)
	}

	if !svc.allowed(abs) {
		return nil, xerrors.Errorf("%s is outside the allowed roots: %w", path, ErrAccessDenied)
	}

	fi, err := os.Stat(abs)
	if err != nil {
		if os.IsPermission(err) {
			return nil, xerrors.Errorf("%s: %w", path, ErrAccessDenied)
		}
		return nil, xerrors.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, xerrors.Errorf("%s is not a regular file: %w", path, ErrAccessDenied)
	}

	svc.outstanding.Inc()
	return &fsGrant{path: abs, svc: svc}, nil
}

func (svc *fsService) Outstanding() int {
	return int(svc.outstanding.Load())
}

func (svc *fsService) allowed(abs string) bool {
	if len(svc.roots) == 0 {
		return true
	}
	for _, root := range svc.roots {
		rel, err := filepath.Rel(root, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

type fsGrant struct {
	path string
	svc  *fsService
	once sync.Once
}

func (g *fsGrant) Path() string {
	return g.path
}

func (g *fsGrant) Release() {
	g.once.Do(func() {
		g.svc.outstanding.Dec()
	})
}
