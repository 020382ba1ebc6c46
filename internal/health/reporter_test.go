package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReportOK(t *testing.T) {
	r := New("production", "1.2.3")
	start := r.startedAt
	r.now = func() time.Time { return start.Add(90 * time.Second) }
	r.Register("storage", func(context.Context) error { return nil })
	r.Register("ignored", nil)

	status, failure := r.Report(context.Background())
	if failure != nil {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if status.Status != StatusOK || status.Environment != "production" || status.Version != "1.2.3" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Uptime != 90 {
		t.Fatalf("expected 90s uptime, got %v", status.Uptime)
	}
}

func TestReportCollectsFailures(t *testing.T) {
	r := New("dev", "1.0.0")
	r.Register("storage", func(context.Context) error { return errors.New("connection refused") })
	r.Register("redis", func(context.Context) error { panic("boom") })
	r.Register("ok", func(context.Context) error { return nil })

	_, failure := r.Report(context.Background())
	if failure == nil {
		t.Fatal("expected failure")
	}
	if failure.Status != StatusError {
		t.Fatalf("unexpected status %q", failure.Status)
	}
	for _, want := range []string{"storage: connection refused", "redis: check panicked: boom"} {
		if !strings.Contains(failure.Error, want) {
			t.Fatalf("expected %q in %q", want, failure.Error)
		}
	}
}

func TestReportTimesOutSlowChecks(t *testing.T) {
	r := New("dev", "1.0.0")
	r.timeout = 10 * time.Millisecond
	r.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	_, failure := r.Report(context.Background())
	if failure == nil || !strings.Contains(failure.Error, "deadline exceeded") {
		t.Fatalf("expected deadline failure, got %+v", failure)
	}
}
