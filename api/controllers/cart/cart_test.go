package cart

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	cartdto "github.com/kingshoppers/storefront/api/controllers/cart/dto"
	"github.com/kingshoppers/storefront/api/middleware"
	cartsvc "github.com/kingshoppers/storefront/internal/cart"
	"github.com/kingshoppers/storefront/pkg/enums"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/logger"
)

type memoryStore struct {
	mu     sync.Mutex
	states map[string]cartsvc.State
}

func newMemoryStore() *memoryStore {
	return &memoryStore{states: map[string]cartsvc.State{}}
}

func (m *memoryStore) Load(_ context.Context, sessionID string) (*cartsvc.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[sessionID]
	if !ok {
		return nil, nil
	}
	clone := state.Clone()
	return &clone, nil
}

func (m *memoryStore) Save(_ context.Context, state cartsvc.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.SessionID] = state.Clone()
	return nil
}

func (m *memoryStore) MarkSynced(context.Context, string, int64) error { return nil }

type stubCatalog struct {
	items map[string]cartsvc.NewItem
}

func (s *stubCatalog) Variant(_ context.Context, productID, variantID string) (cartsvc.NewItem, error) {
	item, ok := s.items[productID+"/"+variantID]
	if !ok {
		return cartsvc.NewItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
	}
	return item, nil
}

func (s *stubCatalog) Snapshots(_ context.Context, items []cartsvc.Item) ([]cartsvc.NewItem, error) {
	out := []cartsvc.NewItem{}
	for _, item := range items {
		if snap, ok := s.items[item.ProductID+"/"+item.VariantID]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func variant(productID string, stock, moq int, price string) cartsvc.NewItem {
	return cartsvc.NewItem{
		ProductID:  productID,
		VariantID:  productID + "-v",
		Name:       "Product " + productID,
		Price:      decimal.RequireFromString(price),
		MRP:        decimal.RequireFromString(price).Add(decimal.NewFromInt(10)),
		GSTPercent: decimal.NewFromInt(5),
		Stock:      stock,
		MOQ:        moq,
		Available:  true,
	}
}

func newTestService(t *testing.T) *cartsvc.Service {
	t.Helper()
	formatter, err := cartsvc.NewFormatter("INR", "en-IN")
	if err != nil {
		t.Fatalf("formatter: %v", err)
	}
	svc, err := cartsvc.NewService(cartsvc.ServiceParams{
		Store:     newMemoryStore(),
		Formatter: formatter,
		TaxMode:   enums.TaxModeIntraState,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func newTestRouter(svc Service, catalog Catalog) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithSessionID(r.Context(), "sess-1")))
		})
	})
	r.Get("/cart", CartFetch(svc, nil))
	r.Delete("/cart", CartClear(svc, nil))
	r.Post("/cart/items", CartAddItem(svc, catalog, nil))
	r.Post("/cart/items/{productId}/{variantId}/increment", CartIncrementItem(svc, nil))
	r.Post("/cart/items/{productId}/{variantId}/decrement", CartDecrementItem(svc, nil))
	r.Put("/cart/items/{productId}/{variantId}", CartSetQuantity(svc, nil))
	r.Delete("/cart/items/{productId}/{variantId}", CartRemoveItem(svc, nil))
	r.Post("/cart/revalidate", CartRevalidate(svc, catalog, nil))
	r.Get("/cart/validate", CartValidate(svc, nil))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCartAddItemClampsToStock(t *testing.T) {
	catalog := &stubCatalog{items: map[string]cartsvc.NewItem{"p1/p1-v": variant("p1", 5, 1, "100")}}
	h := newTestRouter(newTestService(t), catalog)

	rec := do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p1","variant_id":"p1-v","quantity":10}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	view := decodeData[cartdto.MutationView](t, rec)
	if !view.Clamped || view.Requested != 10 {
		t.Fatalf("expected clamped from 10, got %+v", view)
	}
	if view.Item == nil || view.Item.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %+v", view.Item)
	}
	if view.Cart.ItemsCount != 5 || !view.Cart.CanCheckout {
		t.Fatalf("unexpected cart %+v", view.Cart)
	}
	if !view.Cart.Summary.Subtotal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected subtotal 500, got %s", view.Cart.Summary.Subtotal)
	}
	if view.Cart.Formatted.Total == "" {
		t.Fatalf("expected formatted totals")
	}
}

func TestCartAddItemDefaultsQuantityAndRejectsUnknown(t *testing.T) {
	catalog := &stubCatalog{items: map[string]cartsvc.NewItem{"p1/p1-v": variant("p1", 5, 1, "100")}}
	h := newTestRouter(newTestService(t), catalog)

	rec := do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p1","variant_id":"p1-v"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if view := decodeData[cartdto.MutationView](t, rec); view.Item.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", view.Item.Quantity)
	}

	if rec := do(t, h, http.MethodPost, "/cart/items", `{"product_id":"nope","variant_id":"x"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p1"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCartAddItemOutOfStockRejected(t *testing.T) {
	catalog := &stubCatalog{items: map[string]cartsvc.NewItem{"p1/p1-v": variant("p1", 0, 1, "100")}}
	h := newTestRouter(newTestService(t), catalog)

	rec := do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p1","variant_id":"p1-v","quantity":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Type string `json:"type"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Details.Type != string(enums.CartValidationOutOfStock) {
		t.Fatalf("expected out_of_stock detail, got %+v", payload.Error)
	}
}

func TestCartLineOperations(t *testing.T) {
	catalog := &stubCatalog{items: map[string]cartsvc.NewItem{"p1/p1-v": variant("p1", 3, 1, "50")}}
	h := newTestRouter(newTestService(t), catalog)

	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p1","variant_id":"p1-v","quantity":1}`)

	for i := 0; i < 3; i++ {
		if rec := do(t, h, http.MethodPost, "/cart/items/p1/p1-v/increment", ""); rec.Code != http.StatusOK {
			t.Fatalf("increment %d: expected 200 got %d", i, rec.Code)
		}
	}
	view := decodeData[cartdto.CartView](t, do(t, h, http.MethodGet, "/cart", ""))
	if view.ItemsCount != 3 {
		t.Fatalf("expected quantity capped at 3, got %d", view.ItemsCount)
	}

	rec := do(t, h, http.MethodPut, "/cart/items/p1/p1-v", `{"quantity":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set quantity: expected 200 got %d", rec.Code)
	}
	if mv := decodeData[cartdto.MutationView](t, rec); mv.Item.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", mv.Item.Quantity)
	}

	if rec := do(t, h, http.MethodPut, "/cart/items/p1/p1-v", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected missing quantity to fail, got %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/cart/items/p1/p1-v/decrement", "")
	rec = do(t, h, http.MethodPost, "/cart/items/p1/p1-v/decrement", "")
	if mv := decodeData[cartdto.MutationView](t, rec); !mv.Removed || len(mv.Cart.Items) != 0 {
		t.Fatalf("expected line removed, got %+v", mv)
	}

	if rec := do(t, h, http.MethodPost, "/cart/items/p1/p1-v/increment", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent line, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/cart/items/p1/p1-v", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected removing an absent line to succeed, got %d", rec.Code)
	}
}

func TestCartClear(t *testing.T) {
	catalog := &stubCatalog{items: map[string]cartsvc.NewItem{
		"p1/p1-v": variant("p1", 5, 1, "10"),
		"p2/p2-v": variant("p2", 5, 2, "20"),
	}}
	h := newTestRouter(newTestService(t), catalog)
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p1","variant_id":"p1-v","quantity":1}`)
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p2","variant_id":"p2-v","quantity":1}`)

	view := decodeData[cartdto.CartView](t, do(t, h, http.MethodDelete, "/cart", ""))
	if len(view.Items) != 0 || view.CanCheckout {
		t.Fatalf("expected empty cart, got %+v", view)
	}
}

func TestCartRevalidateFlagsStockDrop(t *testing.T) {
	catalog := &stubCatalog{items: map[string]cartsvc.NewItem{"p1/p1-v": variant("p1", 10, 1, "100")}}
	h := newTestRouter(newTestService(t), catalog)
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p1","variant_id":"p1-v","quantity":6}`)

	catalog.items["p1/p1-v"] = variant("p1", 4, 1, "100")
	rec := do(t, h, http.MethodPost, "/cart/revalidate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	view := decodeData[cartdto.RevalidateView](t, rec)
	if view.Changed != 1 {
		t.Fatalf("expected one changed line, got %d", view.Changed)
	}
	if view.Cart.Items[0].Quantity != 6 {
		t.Fatalf("quantity must not change on refresh, got %d", view.Cart.Items[0].Quantity)
	}
	if len(view.Cart.Validation) != 1 || view.Cart.Validation[0].Type != enums.CartValidationInsufficientStock {
		t.Fatalf("expected insufficient_stock, got %+v", view.Cart.Validation)
	}

	report := decodeData[cartdto.ValidationView](t, do(t, h, http.MethodGet, "/cart/validate", ""))
	if report.CanCheckout || len(report.Validation) != 1 {
		t.Fatalf("unexpected validation report %+v", report)
	}
}

// racingCatalog adds a line to the cart while the lookup is in flight.
type racingCatalog struct {
	*stubCatalog
	svc   *cartsvc.Service
	extra cartsvc.NewItem
}

func (c *racingCatalog) Snapshots(ctx context.Context, items []cartsvc.Item) ([]cartsvc.NewItem, error) {
	err := c.svc.WithCart(ctx, "sess-1", func(engine *cartsvc.Engine) error {
		_, addErr := engine.AddItem(ctx, c.extra, 2)
		return addErr
	})
	if err != nil {
		return nil, err
	}
	return c.stubCatalog.Snapshots(ctx, items)
}

func TestCartRevalidateKeepsLineAddedDuringLookup(t *testing.T) {
	svc := newTestService(t)
	catalog := &racingCatalog{
		stubCatalog: &stubCatalog{items: map[string]cartsvc.NewItem{
			"p1/p1-v": variant("p1", 10, 1, "100"),
			"p2/p2-v": variant("p2", 10, 1, "50"),
		}},
		svc:   svc,
		extra: variant("p2", 10, 1, "50"),
	}
	h := newTestRouter(svc, catalog)
	do(t, h, http.MethodPost, "/cart/items", `{"product_id":"p1","variant_id":"p1-v","quantity":1}`)

	rec := do(t, h, http.MethodPost, "/cart/revalidate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	view := decodeData[cartdto.RevalidateView](t, rec)
	if len(view.Cart.Items) != 2 {
		t.Fatalf("expected both lines, got %d", len(view.Cart.Items))
	}
	if !view.Cart.CanCheckout || len(view.Cart.Validation) != 0 {
		t.Fatalf("line added during lookup must stay valid: %+v", view.Cart.Validation)
	}
}

func TestCartRequiresSession(t *testing.T) {
	handler := CartFetch(newTestService(t), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
