package workers

import (
	"context"
	"log/slog"
	"time"

	"live-docs/observability"
)

// TelemetryWorker periodically logs a stats snapshot so operators can
// follow session activity from the logs alone, without polling /stats.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	stats          func() observability.Stats
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration, stats func() observability.Stats) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		metricInterval: metricInterval,
		stats:          stats,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping telemetry worker")
			return nil
		case <-ticker.C:
			stats := w.stats()
			w.log.Info("telemetry",
				"sessions", stats.ActiveSessions,
				"participants", stats.ActiveParticipants,
				"changes_relayed", stats.ChangesRelayed,
				"cursors_relayed", stats.CursorsRelayed,
				"events_dropped", stats.EventsDropped,
				"saves_ok", stats.SavesOK,
				"saves_failed", stats.SavesFailed,
				"alloc_mem_mb", stats.AllocMemMb,
				"rss_mem_mb", stats.RssMemMb,
				"cpu_percent", stats.CPUPercent)
		}
	}
}
