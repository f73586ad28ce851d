package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kingshoppers/storefront/pkg/enums"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/metrics"
)

const (
	OpAdd          = "add"
	OpIncrement    = "increment"
	OpDecrement    = "decrement"
	OpSetQuantity  = "set_quantity"
	OpRemove       = "remove"
	OpClear        = "clear"
	OpRefreshStock = "refresh_stock"
)

// EngineParams wires an Engine for one session.
type EngineParams struct {
	SessionID string
	Initial   *State
	Store     Persister
	Mirror    Mirror
	Metrics   *metrics.CartMetrics
	Formatter *Formatter
	TaxMode   enums.TaxMode
	Clock     func() time.Time
}

// MutationResult reports the outcome of a mutation on a single line.
type MutationResult struct {
	Item      *Item `json:"item,omitempty"`
	Requested int   `json:"requested"`
	Clamped   bool  `json:"clamped"`
	Removed   bool  `json:"removed"`
	State     State `json:"-"`
}

// Engine owns the item list of one session cart. Every mutation is
// persisted before it becomes visible.
type Engine struct {
	mu          sync.RWMutex
	state       State
	store       Persister
	mirror      Mirror
	metrics     *metrics.CartMetrics
	formatter   *Formatter
	taxMode     enums.TaxMode
	now         func() time.Time
	subscribers map[int]func(State)
	nextSubID   int
}

// NewEngine builds an engine seeded from p.Initial, or empty when nil.
func NewEngine(p EngineParams) (*Engine, error) {
	sessionID := strings.TrimSpace(p.SessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	taxMode := p.TaxMode
	if !taxMode.IsValid() {
		taxMode = enums.TaxModeIntraState
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}

	state := State{SessionID: sessionID, Items: []Item{}}
	if p.Initial != nil {
		state = p.Initial.Clone()
		state.SessionID = sessionID
	}
	state.Summary = ComputeSummary(state.Items, taxMode)

	return &Engine{
		state:       state,
		store:       p.Store,
		mirror:      p.Mirror,
		metrics:     p.Metrics,
		formatter:   p.Formatter,
		taxMode:     taxMode,
		now:         clock,
		subscribers: map[int]func(State){},
	}, nil
}

// AddItem inserts a line or merges into the existing one, clamping the
// resulting quantity to [MOQ, stock]. A line that can hold no quantity at
// all is rejected with a validation error.
func (e *Engine) AddItem(ctx context.Context, in NewItem, quantity int) (MutationResult, error) {
	if quantity <= 0 {
		return MutationResult{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := in.validate(); err != nil {
		return MutationResult{}, err
	}

	var result MutationResult
	err := e.mutate(ctx, OpAdd, func(items []Item, now time.Time) ([]Item, bool, error) {
		key := keyOf(in.ProductID, in.VariantID)
		idx := indexOf(items, key)

		var item Item
		requested := quantity
		if idx >= 0 {
			item = items[idx]
			item.applySnapshot(in)
			requested = item.Quantity + quantity
		} else {
			item = in.toItem(now)
		}

		if verr := admissible(item, requested); verr != nil {
			return nil, false, pkgerrors.New(pkgerrors.CodeValidation, verr.Message).WithDetails(verr)
		}

		item.Quantity = clampQuantity(requested, item.MinQuantity(), item.Stock)
		item.UpdatedAt = now
		if idx >= 0 {
			items[idx] = item
		} else {
			items = append(items, item)
		}

		result = MutationResult{Item: &item, Requested: requested, Clamped: item.Quantity != requested}
		return items, true, nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	if result.Clamped {
		e.metrics.IncClamped(OpAdd)
	}
	result.State = e.Snapshot()
	return result, nil
}

// IncrementItem raises the quantity by one. At the stock ceiling it is a
// no-op reported as clamped.
func (e *Engine) IncrementItem(ctx context.Context, productID, variantID string) (MutationResult, error) {
	var result MutationResult
	err := e.mutate(ctx, OpIncrement, func(items []Item, now time.Time) ([]Item, bool, error) {
		idx, err := findLine(items, productID, variantID)
		if err != nil {
			return nil, false, err
		}
		item := items[idx]
		requested := item.Quantity + 1
		if !item.Available || requested > item.Stock {
			result = MutationResult{Item: &item, Requested: requested, Clamped: true}
			return nil, false, nil
		}

		item.Quantity = clampQuantity(requested, item.MinQuantity(), item.Stock)
		item.UpdatedAt = now
		items[idx] = item
		result = MutationResult{Item: &item, Requested: requested, Clamped: item.Quantity != requested}
		return items, true, nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	if result.Clamped {
		e.metrics.IncClamped(OpIncrement)
	}
	result.State = e.Snapshot()
	return result, nil
}

// DecrementItem lowers the quantity by one. Going below max(MOQ, 1)
// removes the line rather than clamping to MOQ.
func (e *Engine) DecrementItem(ctx context.Context, productID, variantID string) (MutationResult, error) {
	var result MutationResult
	err := e.mutate(ctx, OpDecrement, func(items []Item, now time.Time) ([]Item, bool, error) {
		idx, err := findLine(items, productID, variantID)
		if err != nil {
			return nil, false, err
		}
		item := items[idx]
		requested := item.Quantity - 1
		if requested < item.MinQuantity() {
			result = MutationResult{Requested: requested, Removed: true}
			return append(items[:idx], items[idx+1:]...), true, nil
		}

		item.Quantity = requested
		item.UpdatedAt = now
		items[idx] = item
		result = MutationResult{Item: &item, Requested: requested}
		return items, true, nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	result.State = e.Snapshot()
	return result, nil
}

// SetQuantity sets an explicit quantity. Zero removes the line; positive
// values are clamped to [MOQ, stock].
func (e *Engine) SetQuantity(ctx context.Context, productID, variantID string, quantity int) (MutationResult, error) {
	if quantity < 0 {
		return MutationResult{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	var result MutationResult
	err := e.mutate(ctx, OpSetQuantity, func(items []Item, now time.Time) ([]Item, bool, error) {
		idx, err := findLine(items, productID, variantID)
		if err != nil {
			return nil, false, err
		}
		if quantity == 0 {
			result = MutationResult{Requested: 0, Removed: true}
			return append(items[:idx], items[idx+1:]...), true, nil
		}

		item := items[idx]
		if verr := admissible(item, quantity); verr != nil {
			return nil, false, pkgerrors.New(pkgerrors.CodeValidation, verr.Message).WithDetails(verr)
		}
		next := clampQuantity(quantity, item.MinQuantity(), item.Stock)
		result = MutationResult{Requested: quantity, Clamped: next != quantity}
		if next == item.Quantity {
			result.Item = &item
			return nil, false, nil
		}

		item.Quantity = next
		item.UpdatedAt = now
		items[idx] = item
		result.Item = &item
		return items, true, nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	if result.Clamped {
		e.metrics.IncClamped(OpSetQuantity)
	}
	result.State = e.Snapshot()
	return result, nil
}

// RemoveItem deletes the matching line. Removing an absent line is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, productID, variantID string) (MutationResult, error) {
	var result MutationResult
	err := e.mutate(ctx, OpRemove, func(items []Item, _ time.Time) ([]Item, bool, error) {
		idx := indexOf(items, keyOf(productID, variantID))
		if idx < 0 {
			return nil, false, nil
		}
		result = MutationResult{Removed: true}
		return append(items[:idx], items[idx+1:]...), true, nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	result.State = e.Snapshot()
	return result, nil
}

// ClearCart empties the cart.
func (e *Engine) ClearCart(ctx context.Context) error {
	return e.mutate(ctx, OpClear, func(items []Item, _ time.Time) ([]Item, bool, error) {
		if len(items) == 0 {
			return nil, false, nil
		}
		return []Item{}, true, nil
	})
}

// RefreshStock overwrites each line's catalog snapshot from fresh server
// data. queried is the set of lines the catalog was asked about; a queried
// line missing from fresh becomes unavailable. Lines outside that set keep
// their snapshot unless fresh happens to carry them. Quantities are never
// changed; Validate reports whatever the new snapshot breaks.
func (e *Engine) RefreshStock(ctx context.Context, queried []Item, fresh []NewItem) (int, error) {
	byKey := make(map[itemKey]NewItem, len(fresh))
	for _, snapshot := range fresh {
		byKey[keyOf(snapshot.ProductID, snapshot.VariantID)] = snapshot
	}
	asked := make(map[itemKey]struct{}, len(queried))
	for _, item := range queried {
		asked[item.key()] = struct{}{}
	}

	changed := 0
	err := e.mutate(ctx, OpRefreshStock, func(items []Item, now time.Time) ([]Item, bool, error) {
		for i := range items {
			snapshot, ok := byKey[items[i].key()]
			if !ok {
				if _, wasAsked := asked[items[i].key()]; !wasAsked {
					continue
				}
				if items[i].Available {
					items[i].Available = false
					items[i].UpdatedAt = now
					changed++
				}
				continue
			}
			if items[i].sameSnapshot(snapshot) {
				continue
			}
			items[i].applySnapshot(snapshot)
			items[i].UpdatedAt = now
			changed++
		}
		return items, changed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// GetItemQuantity returns the quantity of a line, or 0 when absent.
func (e *Engine) GetItemQuantity(productID, variantID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx := indexOf(e.state.Items, keyOf(productID, variantID)); idx >= 0 {
		return e.state.Items[idx].Quantity
	}
	return 0
}

// IsInCart reports whether a line exists for the pair.
func (e *Engine) IsInCart(productID, variantID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return indexOf(e.state.Items, keyOf(productID, variantID)) >= 0
}

// ItemsCount is the sum of quantities across all lines.
func (e *Engine) ItemsCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.ItemsCount()
}

// Items returns a copy of the current lines.
func (e *Engine) Items() []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneItems(e.state.Items)
}

// Summary returns the current totals.
func (e *Engine) Summary() Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Summary
}

// FormattedSummary renders the current totals for display.
func (e *Engine) FormattedSummary() (FormattedSummary, error) {
	if e.formatter == nil {
		return FormattedSummary{}, pkgerrors.New(pkgerrors.CodeInternal, "cart formatter not configured")
	}
	return e.formatter.Format(e.Summary()), nil
}

// Validate re-checks every line against its last-known snapshot without
// touching quantities.
func (e *Engine) Validate() []ValidationError {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return validateItems(e.state.Items)
}

// CanCheckout reports whether the cart is non-empty and valid.
func (e *Engine) CanCheckout() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.state.Items) > 0 && len(validateItems(e.state.Items)) == 0
}

// Snapshot returns a read-only copy of the state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// Subscribe registers fn to receive every committed state. The returned
// func cancels the subscription.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

type mutation func(items []Item, now time.Time) (next []Item, changed bool, err error)

// mutate runs fn over a copy of the lines, persists the result and only
// then commits it. Subscribers and the mirror are notified outside the lock.
func (e *Engine) mutate(ctx context.Context, op string, fn mutation) error {
	e.mu.Lock()
	now := e.now().UTC()
	items, changed, err := fn(cloneItems(e.state.Items), now)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !changed {
		e.mu.Unlock()
		return nil
	}

	next := State{
		SessionID: e.state.SessionID,
		Items:     items,
		Summary:   ComputeSummary(items, e.taxMode),
		Version:   e.state.Version + 1,
		UpdatedAt: now,
	}
	if e.store != nil {
		if err := e.store.Save(ctx, next); err != nil {
			e.mu.Unlock()
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
		}
	}
	e.state = next
	snapshot := next.Clone()
	subscribers := make([]func(State), 0, len(e.subscribers))
	for _, sub := range e.subscribers {
		subscribers = append(subscribers, sub)
	}
	e.mu.Unlock()

	e.metrics.IncMutation(op)
	for _, sub := range subscribers {
		sub(snapshot.Clone())
	}
	if e.mirror != nil {
		e.mirror.Enqueue(ctx, snapshot)
	}
	return nil
}

func findLine(items []Item, productID, variantID string) (int, error) {
	key := keyOf(productID, variantID)
	if key.productID == "" || key.variantID == "" {
		return -1, pkgerrors.New(pkgerrors.CodeValidation, "product id and variant id are required")
	}
	idx := indexOf(items, key)
	if idx < 0 {
		return -1, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	return idx, nil
}
