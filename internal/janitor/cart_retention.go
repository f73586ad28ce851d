package janitor

import (
	"context"
	"fmt"
	"time"
)

const defaultCartRetention = 30 * 24 * time.Hour

type cartPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartRetentionJob deletes SQL carts nobody has touched within the retention
// window. Redis carts expire on their own TTL and never need this.
type CartRetentionJob struct {
	store     cartPurger
	retention time.Duration
	now       func() time.Time
}

func NewCartRetentionJob(store cartPurger, retention time.Duration) (*CartRetentionJob, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if retention <= 0 {
		retention = defaultCartRetention
	}
	return &CartRetentionJob{store: store, retention: retention, now: time.Now}, nil
}

func (j *CartRetentionJob) Name() string { return "cart-retention" }

func (j *CartRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	rows, err := j.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cart retention: %w", err)
	}
	return rows, nil
}
