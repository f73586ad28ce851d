package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingshoppers/storefront/internal/access"
	"github.com/kingshoppers/storefront/internal/cart"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/kingshoppers/storefront/pkg/logger"
	"github.com/kingshoppers/storefront/pkg/metrics"
	"github.com/shopspring/decimal"
)

type cartStore interface {
	WithCart(ctx context.Context, sessionID string, fn func(*cart.Engine) error) error
	Peek(ctx context.Context, sessionID string) (*cart.Engine, error)
}

type orderAPI interface {
	ValidateCoupon(ctx context.Context, req kingapi.CouponValidationRequest) (*kingapi.CouponValidation, error)
	PlaceOrder(ctx context.Context, req kingapi.OrderRequest) (*kingapi.Order, error)
}

// Service prices and places orders from a session cart.
type Service interface {
	Quote(ctx context.Context, sessionID, couponCode string) (*Quote, error)
	Place(ctx context.Context, identity *access.Identity, sessionID string, input PlaceInput) (*Result, error)
}

// Params wire the checkout service.
type Params struct {
	Carts     cartStore
	API       orderAPI
	Formatter *cart.Formatter
	Metrics   *metrics.CartMetrics
	Logger    *logger.Logger
}

// Quote is the priced view of a cart before payment.
type Quote struct {
	Summary          cart.Summary              `json:"summary"`
	Formatted        cart.FormattedSummary     `json:"formatted"`
	Validation       []cart.ValidationError    `json:"validation"`
	CanCheckout      bool                      `json:"can_checkout"`
	Coupon           *kingapi.CouponValidation `json:"coupon,omitempty"`
	Discount         decimal.Decimal           `json:"discount"`
	Payable          decimal.Decimal           `json:"payable"`
	FormattedPayable string                    `json:"formatted_payable"`
}

// PlaceInput carries the buyer's choices for order placement.
type PlaceInput struct {
	CouponCode        string
	ShippingAddressID string
	PaymentMethod     string
	Notes             string
}

// Result is a placed order with the quote it was placed at.
type Result struct {
	Order *kingapi.Order `json:"order"`
	Quote *Quote         `json:"quote"`
}

type service struct {
	carts     cartStore
	api       orderAPI
	formatter *cart.Formatter
	metrics   *metrics.CartMetrics
	logg      *logger.Logger
}

// NewService builds the checkout service.
func NewService(p Params) (Service, error) {
	if p.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if p.API == nil {
		return nil, fmt.Errorf("king api client required")
	}
	if p.Formatter == nil {
		return nil, fmt.Errorf("formatter required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:     p.Carts,
		api:       p.API,
		formatter: p.Formatter,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}, nil
}

// Quote prices the cart. An invalid coupon is reported on the quote and
// contributes no discount.
func (s *service) Quote(ctx context.Context, sessionID, couponCode string) (*Quote, error) {
	engine, err := s.carts.Peek(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.quote(ctx, engine, couponCode)
}

// Place requires an approved customer and a cart that can check out. The
// cart is cleared once the order exists.
func (s *service) Place(ctx context.Context, identity *access.Identity, sessionID string, input PlaceInput) (*Result, error) {
	if identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	if !access.CanAccess(identity, access.AreaCheckout) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account cannot check out")
	}
	if strings.TrimSpace(input.ShippingAddressID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	var result *Result
	err := s.carts.WithCart(ctx, sessionID, func(engine *cart.Engine) error {
		if len(engine.Items()) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
		}
		if problems := engine.Validate(); len(problems) > 0 {
			for _, problem := range problems {
				s.metrics.IncValidationError(problem.Type.String())
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart cannot be checked out").WithDetails(problems)
		}

		quote, err := s.quote(ctx, engine, input.CouponCode)
		if err != nil {
			return err
		}
		if quote.Coupon != nil && !quote.Coupon.Valid {
			return pkgerrors.New(pkgerrors.CodeValidation, "coupon is not valid").WithDetails(quote.Coupon)
		}

		order, err := s.api.PlaceOrder(ctx, toOrderRequest(engine.Items(), input))
		if err != nil {
			return err
		}
		logCtx := s.logg.WithField(ctx, "order_id", order.ID)
		s.logg.Info(logCtx, "order placed")

		if err := engine.ClearCart(ctx); err != nil {
			s.logg.Error(logCtx, "order placed but cart not cleared", err)
		}
		result = &Result{Order: order, Quote: quote}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) quote(ctx context.Context, engine *cart.Engine, couponCode string) (*Quote, error) {
	summary := engine.Summary()
	formatted, err := engine.FormattedSummary()
	if err != nil {
		return nil, err
	}
	problems := engine.Validate()
	q := &Quote{
		Summary:     summary,
		Formatted:   formatted,
		Validation:  problems,
		CanCheckout: len(engine.Items()) > 0 && len(problems) == 0,
		Discount:    decimal.Zero,
		Payable:     summary.Total,
	}

	code := strings.TrimSpace(couponCode)
	if code != "" && len(engine.Items()) > 0 {
		coupon, err := s.api.ValidateCoupon(ctx, kingapi.CouponValidationRequest{Code: code, CartTotal: summary.Total})
		if err != nil {
			return nil, err
		}
		q.Coupon = coupon
		if coupon.Valid && coupon.Discount.IsPositive() {
			q.Discount = coupon.Discount
		}
	}

	q.Payable = Payable(summary.Total, q.Discount)
	q.FormattedPayable = s.formatter.Money(q.Payable)
	return q, nil
}

// Payable is total minus discount, floored at zero.
func Payable(total, discount decimal.Decimal) decimal.Decimal {
	payable := total.Sub(discount)
	if payable.IsNegative() {
		return decimal.Zero
	}
	return payable
}

func toOrderRequest(items []cart.Item, input PlaceInput) kingapi.OrderRequest {
	lines := make([]kingapi.OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, kingapi.OrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return kingapi.OrderRequest{
		Items:             lines,
		CouponCode:        strings.TrimSpace(input.CouponCode),
		ShippingAddressID: strings.TrimSpace(input.ShippingAddressID),
		PaymentMethod:     strings.TrimSpace(input.PaymentMethod),
		Notes:             input.Notes,
	}
}
