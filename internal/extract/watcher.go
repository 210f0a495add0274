package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mvp-joe/submodel/internal/cache"
)

// Watcher re-runs an extraction whenever the source deck changes. The cache
// key (size, mtime) makes the re-run reparse automatically.
type Watcher struct {
	mgr          *cache.Manager
	req          Request
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	logger       *slog.Logger

	// OnResult receives each completed re-extraction; nil disables reporting.
	OnResult func(*Result)
}

// NewWatcher creates a watcher for the request's source deck. The parent
// directory is watched rather than the file itself so editors that replace
// the file by rename are still observed.
func NewWatcher(mgr *cache.Manager, req Request, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(req.Source)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	req.Source = abs
	return &Watcher{
		mgr:          mgr,
		req:          req,
		watcher:      fw,
		debounceTime: 500 * time.Millisecond,
		logger:       logger,
	}, nil
}

// Run performs the initial extraction, then blocks re-extracting on every
// debounced change to the source until ctx is cancelled. Extraction errors
// are logged and watching continues; only ctx cancellation ends the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	w.extract(ctx)

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.req.Source {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Restart the debounce window; large decks are written in bursts.
			if debounce == nil {
				debounce = time.NewTimer(w.debounceTime)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(w.debounceTime)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			w.logger.Info("source changed, re-extracting", "source", w.req.Source)
			w.extract(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) extract(ctx context.Context) {
	res, err := Run(ctx, w.mgr, w.req, nil, w.logger)
	if err != nil {
		w.logger.Error("extraction failed", "source", w.req.Source, "err", err)
		return
	}
	if w.OnResult != nil {
		w.OnResult(res)
	}
}
