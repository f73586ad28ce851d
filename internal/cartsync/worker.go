package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kingshoppers/storefront/internal/cart"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/kingshoppers/storefront/pkg/logger"
	"github.com/kingshoppers/storefront/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	defaultQueueSize = 256
	defaultTimeout   = 5 * time.Second
)

type pusher interface {
	SyncCart(ctx context.Context, req kingapi.CartSyncRequest) error
}

// Marker records that a cart version reached the server.
type Marker interface {
	MarkSynced(ctx context.Context, sessionID string, version int64) error
}

// Params configure the mirror worker.
type Params struct {
	Client    pusher
	Marker    Marker
	Logger    *logger.Logger
	Metrics   *metrics.SyncMetrics
	QueueSize int
	Timeout   time.Duration
}

type job struct {
	state  cart.State
	cookie string
}

// Worker pushes cart snapshots to the server-side cart record. Pushes are
// best effort: a failure is logged and counted, never retried.
type Worker struct {
	client  pusher
	marker  Marker
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]job
	order   chan string
	closed  bool
}

// NewWorker builds a mirror worker.
func NewWorker(p Params) (*Worker, error) {
	if p.Client == nil {
		return nil, fmt.Errorf("king api client required")
	}
	if p.Marker == nil {
		return nil, fmt.Errorf("marker required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	size := p.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Worker{
		client:  p.Client,
		marker:  p.Marker,
		logg:    p.Logger,
		metrics: p.Metrics,
		timeout: timeout,
		pending: make(map[string]job, size),
		order:   make(chan string, size),
	}, nil
}

// Enqueue schedules state for pushing. A session already queued keeps its
// slot and only its snapshot is replaced. Guest carts have no server
// record and are skipped.
func (w *Worker) Enqueue(ctx context.Context, state cart.State) {
	cookie := kingapi.CookieFromContext(ctx)
	if cookie == "" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if _, queued := w.pending[state.SessionID]; queued {
		w.pending[state.SessionID] = job{state: state, cookie: cookie}
		return
	}
	select {
	case w.order <- state.SessionID:
		w.pending[state.SessionID] = job{state: state, cookie: cookie}
	default:
		w.metrics.IncDropped()
		w.logg.Warn(w.logg.WithSessionID(ctx, state.SessionID), "cart sync queue full; dropping snapshot")
	}
}

// Run pushes queued snapshots until ctx is canceled, then drains once.
func (w *Worker) Run(ctx context.Context) error {
	w.logg.Info(ctx, "cart sync worker started")
	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "cart sync worker draining")
			return w.drain()
		case sessionID := <-w.order:
			if j, ok := w.take(sessionID); ok {
				_ = w.push(ctx, j)
			}
		}
	}
}

func (w *Worker) take(sessionID string) (job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	j, ok := w.pending[sessionID]
	delete(w.pending, sessionID)
	return j, ok
}

func (w *Worker) drain() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	var errs error
	for {
		select {
		case sessionID := <-w.order:
			if j, ok := w.take(sessionID); ok {
				errs = multierr.Append(errs, w.push(context.Background(), j))
			}
		default:
			return errs
		}
	}
}

func (w *Worker) push(ctx context.Context, j job) error {
	logCtx := w.logg.WithSessionID(ctx, j.state.SessionID)
	logCtx = w.logg.WithField(logCtx, "version", j.state.Version)

	callCtx, cancel := context.WithTimeout(kingapi.WithCookie(ctx, j.cookie), w.timeout)
	defer cancel()

	start := time.Now()
	err := w.client.SyncCart(callCtx, toRequest(j.state))
	elapsed := time.Since(start)
	if err != nil {
		w.metrics.Observe(metrics.SyncResultFailure, elapsed)
		w.logg.Warn(w.logg.WithField(logCtx, "error", err.Error()), "cart sync failed")
		return fmt.Errorf("sync cart %s: %w", j.state.SessionID, err)
	}
	w.metrics.Observe(metrics.SyncResultSuccess, elapsed)

	if err := w.marker.MarkSynced(ctx, j.state.SessionID, j.state.Version); err != nil {
		w.logg.Warn(w.logg.WithField(logCtx, "error", err.Error()), "cart synced but flag not recorded")
		return fmt.Errorf("mark cart %s synced: %w", j.state.SessionID, err)
	}
	w.logg.Debug(logCtx, "cart synced")
	return nil
}

func toRequest(state cart.State) kingapi.CartSyncRequest {
	items := make([]kingapi.CartSyncItem, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, kingapi.CartSyncItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return kingapi.CartSyncRequest{Items: items, Version: state.Version}
}
