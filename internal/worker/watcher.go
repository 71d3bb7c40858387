package worker

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDefault coalesces bursts of inbox writes into one drain pass.
const debounceDefault = 200 * time.Millisecond

// Run watches the inbox and drains it on new records. Blocks until ctx is
// cancelled. Files already present at startup are drained first, covering
// records that arrived while the daemon was down.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Drain(); err != nil {
		w.log.Warn("startup drain failed", zap.Error(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.store.Dirs().Inbox()); err != nil {
		return err
	}

	// A single debounce timer, reset on each event. Initialized stopped;
	// the first event starts it.
	debounce := time.NewTimer(debounceDefault)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounce.C:
			if err := w.Drain(); err != nil {
				w.log.Warn("drain failed", zap.Error(err))
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isRecordFile(event.Name) {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(debounceDefault)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(werr))
		}
	}
}
