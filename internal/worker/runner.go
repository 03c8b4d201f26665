package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/gyeh/npi-lookup/internal/metrics"
	"github.com/gyeh/npi-lookup/internal/npi"
	"github.com/gyeh/npi-lookup/internal/progress"
	"github.com/juju/ratelimit"
)

// DefaultPause is the courtesy delay between consecutive registry lookups.
const DefaultPause = 50 * time.Millisecond

// Lookuper resolves a single NPI. A nil provider with a nil error means the
// registry has no record for the number.
type Lookuper interface {
	Lookup(ctx context.Context, number string) (*npi.Provider, error)
}

// Runner looks up a batch of NPIs one at a time.
type Runner struct {
	Client   Lookuper
	Pause    time.Duration
	Progress progress.Tracker
	Logger   *slog.Logger
}

// Run looks up every NPI in order and returns one row per NPI, in the same
// order. A failed lookup becomes an Error row; it never stops the batch.
func (r *Runner) Run(ctx context.Context, npis []string) []Row {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := r.Progress
	if tracker == nil {
		tracker = &progress.NoopTracker{}
	}

	var bucket *ratelimit.Bucket
	if r.Pause > 0 {
		bucket = ratelimit.NewBucket(r.Pause, 1)
	}

	rows := make([]Row, 0, len(npis))
	total := int64(len(npis))

	for i, number := range npis {
		if bucket != nil {
			waitTurn(ctx, bucket)
		}

		out := r.lookupOne(ctx, number)
		row := out.Row()
		if out.Err != nil {
			logger.Warn("NPI lookup failed", "npi", number, "error", out.Err)
		}
		metrics.LookupsTotal.WithLabelValues(string(row.Status)).Inc()

		rows = append(rows, row)
		tracker.SetProgress(int64(i+1), total)
	}

	tracker.Done()
	return rows
}

func (r *Runner) lookupOne(ctx context.Context, number string) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{NPI: number, Err: err}
	}
	p, err := r.Client.Lookup(ctx, number)
	return Outcome{NPI: number, Provider: p, Err: err}
}

// waitTurn blocks until the bucket grants the next lookup or ctx is done.
// A cancelled context still lets the caller proceed so the row is recorded.
func waitTurn(ctx context.Context, bucket *ratelimit.Bucket) {
	d := bucket.Take(1)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
