package cartdto

import (
	"time"

	"github.com/kingshoppers/storefront/internal/cart"
)

// CartView is the full cart payload the storefront pages render.
type CartView struct {
	SessionID    string                 `json:"session_id"`
	Items        []cart.Item            `json:"items"`
	ItemsCount   int                    `json:"items_count"`
	Summary      cart.Summary           `json:"summary"`
	Formatted    cart.FormattedSummary  `json:"formatted"`
	Validation   []cart.ValidationError `json:"validation"`
	CanCheckout  bool                   `json:"can_checkout"`
	ServerSynced bool                   `json:"server_synced"`
	Version      int64                  `json:"version"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// MutationView reports what a single-line change did alongside the
// resulting cart.
type MutationView struct {
	Item      *cart.Item `json:"item,omitempty"`
	Requested int        `json:"requested"`
	Clamped   bool       `json:"clamped"`
	Removed   bool       `json:"removed"`
	Cart      CartView   `json:"cart"`
}

// RevalidateView reports a stock refresh.
type RevalidateView struct {
	Changed int      `json:"changed"`
	Cart    CartView `json:"cart"`
}

// ValidationView is the standalone validation report.
type ValidationView struct {
	Validation  []cart.ValidationError `json:"validation"`
	CanCheckout bool                   `json:"can_checkout"`
}
