package progress

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker reports how many identifiers of a batch have been processed.
type Tracker interface {
	SetProgress(current, total int64)
	Done()
}

// MPBTracker implements Tracker with a single mpb progress bar.
type MPBTracker struct {
	container *mpb.Progress
	bar       *mpb.Bar
}

// NewMPBTracker creates a progress bar for a batch of total lookups written to w.
func NewMPBTracker(w io.Writer, total int, label string) *MPBTracker {
	p := mpb.New(mpb.WithWidth(60), mpb.WithOutput(w))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(label, decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
		),
	)
	return &MPBTracker{container: p, bar: bar}
}

func (t *MPBTracker) SetProgress(current, total int64) {
	if total > 0 {
		t.bar.SetTotal(total, false)
	}
	t.bar.SetCurrent(current)
}

// Done completes the bar and waits for it to render.
func (t *MPBTracker) Done() {
	t.bar.SetTotal(-1, true)
	t.container.Wait()
}

// NoopTracker discards progress. It records the last update for callers
// that only want the final fraction.
type NoopTracker struct {
	Current int64
	Total   int64
}

func (t *NoopTracker) SetProgress(current, total int64) {
	t.Current = current
	t.Total = total
}

func (t *NoopTracker) Done() {}

// Fraction returns completed/total, or 0 before any progress was reported.
func (t *NoopTracker) Fraction() float64 {
	if t.Total <= 0 {
		return 0
	}
	return float64(t.Current) / float64(t.Total)
}
