package janitor

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingPurger struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (r *recordingPurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return r.rows, r.err
}

func TestCartRetentionJobUsesRetentionWindow(t *testing.T) {
	purger := &recordingPurger{rows: 12}
	job, err := NewCartRetentionJob(purger, 48*time.Hour)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	rows, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows != 12 {
		t.Fatalf("expected 12 rows got %d", rows)
	}
	if want := now.Add(-48 * time.Hour); !purger.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s got %s", want, purger.cutoff)
	}
}

func TestCartRetentionJobDefaultsAndErrors(t *testing.T) {
	if _, err := NewCartRetentionJob(nil, time.Hour); err == nil {
		t.Fatalf("expected error without store")
	}
	job, err := NewCartRetentionJob(&recordingPurger{err: errors.New("db gone")}, 0)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.retention != defaultCartRetention {
		t.Fatalf("expected default retention")
	}
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected purge error to surface")
	}
}
