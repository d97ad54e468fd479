package workers

import (
	"context"
	"log/slog"
	"time"

	"live-docs/runtime"
)

// AutosaveWorker periodically retries document content that failed to
// persist on the explicit save path. Presence and relay never wait on it;
// it is the background half of best-effort persistence.
type AutosaveWorker struct {
	log      *slog.Logger
	saver    *runtime.Saver
	interval time.Duration
}

func NewAutosaveWorker(log *slog.Logger, saver *runtime.Saver, interval time.Duration) *AutosaveWorker {
	return &AutosaveWorker{log: log, saver: saver, interval: interval}
}

func (w *AutosaveWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Last chance flush so a clean shutdown loses nothing that was
			// already handed to us.
			if w.saver.DirtyCount() > 0 {
				flushCtx, cancel := context.WithTimeout(context.Background(), w.interval)
				w.saver.Flush(flushCtx)
				cancel()
			}
			w.log.Debug("Stopping autosave worker")
			return nil
		case <-ticker.C:
			if w.saver.DirtyCount() == 0 {
				continue
			}
			w.saver.Flush(ctx)
		}
	}
}
