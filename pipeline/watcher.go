package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
)

// overlayDebounce coalesces the burst of events a single save produces.
const overlayDebounce = 100 * time.Millisecond

// watchOverlay re-selects path on the provider whenever the file is written
// or replaced. The parent directory is watched so editors that swap files
// are still seen.
func watchOverlay(ctx context.Context, path string, provider *OverlayImageProvider) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	debounced := debounce.New(overlayDebounce)
	reselect := func() {
		if ctx.Err() == nil {
			provider.Select(path)
		}
	}

	lgr.Logger.Info(
		"watching overlay image",
		slog.String("path", abs),
	)

	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info(
				"overlay watcher context cancelled",
			)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				lgr.Logger.Debug(
					"overlay image changed",
					slog.String("op", event.Op.String()),
				)
				debounced(reselect)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			lgr.Logger.Warn(
				"overlay watcher error",
				slog.Any("error", err),
			)
		}
	}
}
