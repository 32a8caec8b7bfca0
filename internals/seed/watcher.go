package seed

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceDelay = 200 * time.Millisecond

// Watcher reapplies the seed file when it changes on disk. It watches the
// parent directory rather than the file itself, because most editors save
// by renaming a temp file over the original.
type Watcher struct {
	loader  *Loader
	path    string
	watcher *fsnotify.Watcher
	logger  *zerolog.Logger
}

func NewWatcher(loader *Loader, path string, logger *zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		loader:  loader,
		path:    filepath.Clean(path),
		watcher: fw,
		logger:  logger,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Info().Str("path", w.path).Msg("watching seed file")

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				w.logger.Info().Str("path", w.path).Msg("seed file changed, reapplying")
				if err := w.loader.Apply(ctx, w.path); err != nil {
					w.logger.Error().Err(err).Msg("seed reload failed")
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("seed watcher error")
		}
	}
}
