package progress

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogTracker_LogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tr := NewLogTracker(logger, "req-1")
	tr.SetProgress(1, 3)
	tr.SetProgress(2, 3) // throttled
	tr.SetProgress(3, 3)
	tr.Done()

	out := buf.String()
	if got := strings.Count(out, "Lookup progress"); got != 2 {
		t.Errorf("expected 2 progress lines (first and final), got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "percent=100") {
		t.Errorf("expected final line at 100%%:\n%s", out)
	}
	if !strings.Contains(out, "Lookup batch finished") || !strings.Contains(out, "processed=3") {
		t.Errorf("expected finish line with processed count:\n%s", out)
	}
	if !strings.Contains(out, "batch=req-1") {
		t.Errorf("expected batch id in log lines:\n%s", out)
	}
}

func TestNoopTracker_Fraction(t *testing.T) {
	tr := &NoopTracker{}
	if tr.Fraction() != 0 {
		t.Errorf("expected 0 before progress, got %f", tr.Fraction())
	}
	tr.SetProgress(1, 4)
	if tr.Fraction() != 0.25 {
		t.Errorf("expected 0.25, got %f", tr.Fraction())
	}
}

func TestMPBTracker_Completes(t *testing.T) {
	var buf bytes.Buffer
	tr := NewMPBTracker(&buf, 2, "Looking up")
	tr.SetProgress(1, 2)
	tr.SetProgress(2, 2)
	tr.Done()
}

func TestHTMLTracker_EmitsEachStep(t *testing.T) {
	var buf bytes.Buffer
	flushes := 0
	tr := NewHTMLTracker(&buf, func() error {
		flushes++
		return nil
	})

	for i := int64(1); i <= 3; i++ {
		tr.SetProgress(i, 3)
	}
	tr.Done()

	want := "<script>setProgress(1, 3)</script>\n" +
		"<script>setProgress(2, 3)</script>\n" +
		"<script>setProgress(3, 3)</script>\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
	if flushes != 3 {
		t.Errorf("expected a flush per update, got %d", flushes)
	}
	if tr.Err() != nil {
		t.Errorf("unexpected error: %v", tr.Err())
	}
}

func TestHTMLTracker_StopsAfterFlushError(t *testing.T) {
	var buf bytes.Buffer
	tr := NewHTMLTracker(&buf, func() error { return errors.New("client went away") })

	tr.SetProgress(1, 2)
	tr.SetProgress(2, 2)

	if got := strings.Count(buf.String(), "setProgress"); got != 1 {
		t.Errorf("expected writes to stop after the first failed flush, got %d", got)
	}
	if tr.Err() == nil || tr.Err().Error() != "client went away" {
		t.Errorf("expected flush error to be kept, got %v", tr.Err())
	}
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &NoopTracker{}, &NoopTracker{}
	m := Multi(a, b)
	m.SetProgress(2, 4)
	m.Done()

	if a.Fraction() != 0.5 || b.Fraction() != 0.5 {
		t.Errorf("expected both trackers at 0.5, got %f and %f", a.Fraction(), b.Fraction())
	}
}
