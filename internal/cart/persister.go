package cart

import "context"

// Persister stores cart documents keyed by session. Load returns (nil, nil)
// for a session that has never been saved.
type Persister interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, state State) error
	MarkSynced(ctx context.Context, sessionID string, version int64) error
}

// Mirror receives committed snapshots for best-effort server sync. ctx is
// the request that produced the snapshot; implementations must not block.
type Mirror interface {
	Enqueue(ctx context.Context, state State)
}
