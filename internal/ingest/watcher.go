package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig controls the continuous-intake watcher.
type WatchConfig struct {
	Root        string        // directory to watch, recursive
	InitialScan bool          // emit documents already present before watching
	Debounce    time.Duration // coalesce rapid write bursts per file
}

// Watch emits document paths as they appear under the root. The channel
// closes when ctx is cancelled. Watcher errors are logged and surfaced on the
// error channel without stopping the watch.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		return nil, nil, errors.New("ingest: no watch root provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	paths := make(chan string, 256)
	errs := make(chan error, 1)

	// Watch every directory under the root; fsnotify is not recursive.
	err = filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if cfg.InitialScan && isDocument(path) {
			select {
			case paths <- path:
			default:
				logger.Warn("ingest.watch.dropped", slog.String("path", path))
			}
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return nil, nil, err
	}

	go func() {
		defer close(paths)
		defer close(errs)
		defer w.Close()

		var mu sync.Mutex
		var timer *time.Timer
		pending := map[string]struct{}{}

		flush := func() {
			mu.Lock()
			defer mu.Unlock()
			for p := range pending {
				select {
				case paths <- p:
				default:
					logger.Warn("ingest.watch.dropped", slog.String("path", p))
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					// A new subdirectory needs its own watch; for files the
					// Add fails and is ignored.
					_ = w.Add(e.Name)
				}
				if !isDocument(e.Name) || !e.Op.Has(fsnotify.Create) && !e.Op.Has(fsnotify.Write) && !e.Op.Has(fsnotify.Rename) {
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				if cfg.Debounce > 0 {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(cfg.Debounce, flush)
					mu.Unlock()
				} else {
					mu.Unlock()
					flush()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", slog.Any("error", err))
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	logger.Info("ingest.watching", slog.String("root", cfg.Root))
	return paths, errs, nil
}
