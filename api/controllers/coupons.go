package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kingshoppers/storefront/api/middleware"
	"github.com/kingshoppers/storefront/api/responses"
	"github.com/kingshoppers/storefront/api/validators"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/kingshoppers/storefront/pkg/logger"
)

type couponValidateRequest struct {
	Code string `json:"code" validate:"required"`
}

type couponValidateResponse struct {
	Coupon           *kingapi.CouponValidation `json:"coupon"`
	Discount         decimal.Decimal           `json:"discount"`
	Payable          decimal.Decimal           `json:"payable"`
	FormattedPayable string                    `json:"formatted_payable"`
}

// CouponValidate checks a coupon against the session cart total.
func CouponValidate(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
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

		var payload couponValidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code := validators.SanitizeString(payload.Code, maxCouponCodeLength)
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required"))
			return
		}

		quote, err := svc.Quote(r.Context(), sessionID, code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if quote.Coupon == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty"))
			return
		}
		responses.WriteSuccess(w, couponValidateResponse{
			Coupon:           quote.Coupon,
			Discount:         quote.Discount,
			Payable:          quote.Payable,
			FormattedPayable: quote.FormattedPayable,
		})
	}
}
