package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/kingshoppers/storefront/api/controllers/cart/dto"
	"github.com/kingshoppers/storefront/api/middleware"
	"github.com/kingshoppers/storefront/api/responses"
	"github.com/kingshoppers/storefront/api/validators"
	cartsvc "github.com/kingshoppers/storefront/internal/cart"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/logger"
)

// Service is the session cart surface the handlers need.
type Service interface {
	WithCart(ctx context.Context, sessionID string, fn func(*cartsvc.Engine) error) error
	Peek(ctx context.Context, sessionID string) (*cartsvc.Engine, error)
}

// Catalog resolves variants into cart snapshots.
type Catalog interface {
	Variant(ctx context.Context, productID, variantID string) (cartsvc.NewItem, error)
	Snapshots(ctx context.Context, items []cartsvc.Item) ([]cartsvc.NewItem, error)
}

type lineMutation func(ctx context.Context, engine *cartsvc.Engine, productID, variantID string) (cartsvc.MutationResult, error)

// CartFetch returns the session cart with totals and validation.
func CartFetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}

		engine, err := svc.Peek(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := newCartView(engine)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem looks up the variant in the catalog and adds it.
func CartAddItem(svc Service, catalog Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := payload.Quantity
		if quantity == 0 {
			quantity = 1
		}

		snapshot, err := catalog.Variant(r.Context(), payload.ProductID, payload.VariantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var view cartdto.MutationView
		err = svc.WithCart(r.Context(), sessionID, func(engine *cartsvc.Engine) error {
			result, addErr := engine.AddItem(r.Context(), snapshot, quantity)
			if addErr != nil {
				return addErr
			}
			cartView, viewErr := newCartView(engine)
			if viewErr != nil {
				return viewErr
			}
			view = newMutationView(result, cartView)
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// CartIncrementItem raises a line by one unit, capped at stock.
func CartIncrementItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return lineHandler(svc, logg, func(ctx context.Context, engine *cartsvc.Engine, productID, variantID string) (cartsvc.MutationResult, error) {
		return engine.IncrementItem(ctx, productID, variantID)
	})
}

// CartDecrementItem lowers a line by one unit, removing it below MOQ.
func CartDecrementItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return lineHandler(svc, logg, func(ctx context.Context, engine *cartsvc.Engine, productID, variantID string) (cartsvc.MutationResult, error) {
		return engine.DecrementItem(ctx, productID, variantID)
	})
}

// CartRemoveItem drops a line.
func CartRemoveItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return lineHandler(svc, logg, func(ctx context.Context, engine *cartsvc.Engine, productID, variantID string) (cartsvc.MutationResult, error) {
		return engine.RemoveItem(ctx, productID, variantID)
	})
}

// CartSetQuantity sets an explicit line quantity.
func CartSetQuantity(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireSession(w, r, svc, logg); !ok {
			return
		}
		var payload SetQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := *payload.Quantity
		lineHandler(svc, logg, func(ctx context.Context, engine *cartsvc.Engine, productID, variantID string) (cartsvc.MutationResult, error) {
			return engine.SetQuantity(ctx, productID, variantID, quantity)
		})(w, r)
	}
}

// CartClear empties the session cart.
func CartClear(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}

		var view cartdto.CartView
		err := svc.WithCart(r.Context(), sessionID, func(engine *cartsvc.Engine) error {
			if clearErr := engine.ClearCart(r.Context()); clearErr != nil {
				return clearErr
			}
			var viewErr error
			view, viewErr = newCartView(engine)
			return viewErr
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRevalidate refreshes every line's stock, MOQ and pricing from the
// catalog. Quantities are left alone; problems surface in validation.
func CartRevalidate(svc Service, catalog Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		current, err := svc.Peek(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := current.Items()

		var view cartdto.RevalidateView
		if len(items) == 0 {
			cartView, viewErr := newCartView(current)
			if viewErr != nil {
				responses.WriteError(r.Context(), logg, w, viewErr)
				return
			}
			responses.WriteSuccess(w, cartdto.RevalidateView{Cart: cartView})
			return
		}

		fresh, err := catalog.Snapshots(r.Context(), items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.WithCart(r.Context(), sessionID, func(engine *cartsvc.Engine) error {
			changed, refreshErr := engine.RefreshStock(r.Context(), items, fresh)
			if refreshErr != nil {
				return refreshErr
			}
			cartView, viewErr := newCartView(engine)
			if viewErr != nil {
				return viewErr
			}
			view = cartdto.RevalidateView{Changed: changed, Cart: cartView}
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartValidate reports validation problems without changing anything.
func CartValidate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}

		engine, err := svc.Peek(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		validation := engine.Validate()
		if validation == nil {
			validation = []cartsvc.ValidationError{}
		}
		responses.WriteSuccess(w, cartdto.ValidationView{
			Validation:  validation,
			CanCheckout: engine.CanCheckout(),
		})
	}
}

func lineHandler(svc Service, logg *logger.Logger, op lineMutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		productID := chi.URLParam(r, "productId")
		variantID := chi.URLParam(r, "variantId")

		var view cartdto.MutationView
		err := svc.WithCart(r.Context(), sessionID, func(engine *cartsvc.Engine) error {
			result, opErr := op(r.Context(), engine, productID, variantID)
			if opErr != nil {
				return opErr
			}
			cartView, viewErr := newCartView(engine)
			if viewErr != nil {
				return viewErr
			}
			view = newMutationView(result, cartView)
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func requireSession(w http.ResponseWriter, r *http.Request, svc Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return "", false
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing"))
		return "", false
	}
	return sessionID, true
}
