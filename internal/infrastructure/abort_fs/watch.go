package abort_fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davarch/fossa-gate/internal/domain"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch returns a context that is canceled with domain.ErrAborted as soon as
// the file at path exists. An empty path disables the watch. stop releases
// the watcher and must be called.
func Watch(ctx context.Context, log *zap.Logger, path string) (context.Context, func(), error) {
	ctx, cancel := context.WithCancelCause(ctx)
	if path == "" {
		return ctx, func() { cancel(nil) }, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(nil)
		return nil, nil, err
	}

	if err := w.Add(dir); err != nil {
		_ = w.Close()
		cancel(nil)
		return nil, nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	abort := func() {
		log.Warn("abort file found, stopping", zap.String("abort_file", path))
		cancel(fmt.Errorf("%w: abort file %s", domain.ErrAborted, path))
	}

	if _, err := os.Stat(path); err == nil {
		abort()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}

				if filepath.Base(ev.Name) != base {
					continue
				}

				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					if _, err := os.Stat(path); err == nil {
						abort()
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("fsnotify error", zap.Error(err))
			}
		}
	}()

	return ctx, func() {
		cancel(nil)
		_ = w.Close()
		<-done
	}, nil
}
