package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before the
// watcher reports the corpus as settled.
const DefaultDebounce = 500 * time.Millisecond

// EventCallback is called for every note file change the watcher sees.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// WatchConfig configures Watch.
type WatchConfig struct {
	Roots     []string
	Extension string
	Debounce  time.Duration
	// OnChange is called per note file event.
	OnChange EventCallback
	// OnSettled is called once a burst of changes has been quiet for
	// Debounce. Callers typically invalidate the snapshot cache here.
	OnSettled func()
}

// Watch starts an fsnotify watcher on every content root and reports note
// changes until ctx is cancelled. It never touches the snapshot itself.
//
// New directories created at runtime are added to the watch list. Roots that
// cannot be watched are logged and skipped.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	ext := cfg.Extension
	if ext == "" {
		ext = ".md"
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	for _, root := range cfg.Roots {
		abs, absErr := filepath.Abs(root)
		if absErr != nil {
			logger.Warn("watcher: root skipped", slog.String("root", root), slog.String("error", absErr.Error()))
			continue
		}
		if addErr := addDirsRecursive(w, abs); addErr != nil {
			logger.Warn("watcher: root skipped", slog.String("root", abs), slog.String("error", addErr.Error()))
			continue
		}
		logger.Info("watcher: started", slog.String("root", abs))
	}

	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	scheduleSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(debounce)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			logger.Debug("watcher: settled")
			if cfg.OnSettled != nil {
				cfg.OnSettled()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			path := ev.Name
			if isHiddenName(path) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, path); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", path),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", path))
					}
					// Files may already exist in the new directory.
					scheduleSettle()
					continue
				}
			}

			if !strings.HasSuffix(path, ext) {
				// A directory moved or removed only reports its own name;
				// the notes below it are gone all the same.
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					logger.Debug("watcher: path removed", slog.String("path", path))
					scheduleSettle()
				}
				continue
			}

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = "created"
			case ev.Op&fsnotify.Write != 0:
				kind = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path; the new path arrives as Create.
				kind = "deleted"
			default:
				continue
			}

			logger.Debug("watcher: note changed", slog.String("path", path), slog.String("op", kind))
			if cfg.OnChange != nil {
				cfg.OnChange(kind, path)
			}
			scheduleSettle()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func isHiddenName(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
