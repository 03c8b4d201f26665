package progress

import (
	"log/slog"
	"time"
)

// LogTracker implements Tracker with throttled structured log lines, for
// non-TTY environments such as the web server.
type LogTracker struct {
	logger   *slog.Logger
	batch    string
	start    time.Time
	interval time.Duration
	lastLog  time.Time
	current  int64
	total    int64
}

const logInterval = 5 * time.Second

// NewLogTracker creates a log-based tracker tagged with a batch identifier.
func NewLogTracker(logger *slog.Logger, batch string) *LogTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTracker{
		logger:   logger,
		batch:    batch,
		start:    time.Now(),
		interval: logInterval,
	}
}

func (t *LogTracker) SetProgress(current, total int64) {
	t.current = current
	t.total = total

	now := time.Now()
	if current < total && now.Sub(t.lastLog) < t.interval {
		return
	}
	t.lastLog = now

	var pct float64
	if total > 0 {
		pct = float64(current) / float64(total) * 100
	}
	t.logger.Info("Lookup progress",
		"batch", t.batch,
		"done", current,
		"total", total,
		"percent", int(pct),
	)
}

func (t *LogTracker) Done() {
	t.logger.Info("Lookup batch finished",
		"batch", t.batch,
		"processed", t.current,
		"duration_ms", time.Since(t.start).Milliseconds(),
	)
}
