package progress

import (
	"fmt"
	"io"
)

// HTMLTracker streams progress into an HTML page that is still being
// written. Each update calls the page's setProgress(done, total) script and
// flushes, so the browser moves its <progress> bar while the batch runs.
type HTMLTracker struct {
	w     io.Writer
	flush func() error
	err   error
}

// NewHTMLTracker writes updates to w. flush may be nil.
func NewHTMLTracker(w io.Writer, flush func() error) *HTMLTracker {
	return &HTMLTracker{w: w, flush: flush}
}

func (t *HTMLTracker) SetProgress(current, total int64) {
	if t.err != nil {
		return
	}
	if _, t.err = fmt.Fprintf(t.w, "<script>setProgress(%d, %d)</script>\n", current, total); t.err != nil {
		return
	}
	if t.flush != nil {
		t.err = t.flush()
	}
}

func (t *HTMLTracker) Done() {}

// Err returns the first write or flush error. Updates stop after it.
func (t *HTMLTracker) Err() error {
	return t.err
}

// Multi fans every update out to each tracker in order.
func Multi(trackers ...Tracker) Tracker {
	return multiTracker(trackers)
}

type multiTracker []Tracker

func (m multiTracker) SetProgress(current, total int64) {
	for _, t := range m {
		t.SetProgress(current, total)
	}
}

func (m multiTracker) Done() {
	for _, t := range m {
		t.Done()
	}
}
