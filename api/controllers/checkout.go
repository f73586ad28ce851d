package controllers

import (
	"context"
	"net/http"

	"github.com/kingshoppers/storefront/api/middleware"
	"github.com/kingshoppers/storefront/api/responses"
	"github.com/kingshoppers/storefront/api/validators"
	"github.com/kingshoppers/storefront/internal/access"
	checkoutsvc "github.com/kingshoppers/storefront/internal/checkout"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/logger"
)

const (
	maxCouponCodeLength = 64
	maxOrderNotesLength = 500
)

// CheckoutService prices and places orders from the session cart.
type CheckoutService interface {
	Quote(ctx context.Context, sessionID, couponCode string) (*checkoutsvc.Quote, error)
	Place(ctx context.Context, identity *access.Identity, sessionID string, input checkoutsvc.PlaceInput) (*checkoutsvc.Result, error)
}

type quoteRequest struct {
	CouponCode string `json:"coupon_code"`
}

type placeOrderRequest struct {
	CouponCode        string `json:"coupon_code"`
	ShippingAddressID string `json:"shipping_address_id" validate:"required"`
	PaymentMethod     string `json:"payment_method" validate:"required"`
	Notes             string `json:"notes"`
}

// CheckoutQuote returns the priced cart, with a coupon applied when given.
func CheckoutQuote(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), sessionID, validators.SanitizeString(payload.CouponCode, maxCouponCodeLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// CheckoutPlace places the order for the signed-in customer.
func CheckoutPlace(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing"))
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Place(r.Context(), middleware.IdentityFromContext(r.Context()), sessionID, checkoutsvc.PlaceInput{
			CouponCode:        validators.SanitizeString(payload.CouponCode, maxCouponCodeLength),
			ShippingAddressID: validators.SanitizeString(payload.ShippingAddressID, 0),
			PaymentMethod:     validators.SanitizeString(payload.PaymentMethod, 0),
			Notes:             validators.SanitizeString(payload.Notes, maxOrderNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
