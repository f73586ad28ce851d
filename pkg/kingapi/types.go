package kingapi

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Variant is a purchasable pack of a product.
type Variant struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	PackSize    string          `json:"packSize"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp"`
	Stock       int             `json:"stock"`
	MOQ         int             `json:"moq"`
	IsAvailable bool            `json:"isAvailable"`
}

// Product is a catalog entry with its variants.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Brand      string          `json:"brand"`
	Category   string          `json:"category,omitempty"`
	ImageURL   string          `json:"imageUrl"`
	GSTPercent decimal.Decimal `json:"gstPercent"`
	IsActive   bool            `json:"isActive"`
	Variants   []Variant       `json:"variants"`
}

// Variant looks up a variant by id.
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// ProductPage is one page of GET /products.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

type Brand struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	LogoURL string `json:"logoUrl"`
}

// HomepageSection is a merchandising block; its items are passed through untouched.
type HomepageSection struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Type     string          `json:"type"`
	Position int             `json:"position"`
	Items    json.RawMessage `json:"items,omitempty"`
}

type CouponValidationRequest struct {
	Code      string          `json:"code"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

type CouponValidation struct {
	Valid    bool            `json:"valid"`
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message,omitempty"`
}

// User is the session identity returned by GET /auth/me.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	UserType   string `json:"userType"`
	Role       string `json:"role,omitempty"`
	IsApproved bool   `json:"isApproved"`
	HubID      string `json:"hubId,omitempty"`
}

// Kind is the user's type as the API reports it. Older payloads only
// carry role.
func (u User) Kind() string {
	if u.UserType != "" {
		return u.UserType
	}
	return u.Role
}

type CartSyncItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// CartSyncRequest is the body of PUT /cart.
type CartSyncRequest struct {
	Items   []CartSyncItem `json:"items"`
	Version int64          `json:"version"`
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	Items             []OrderItem `json:"items"`
	CouponCode        string      `json:"couponCode,omitempty"`
	ShippingAddressID string      `json:"shippingAddressId"`
	PaymentMethod     string      `json:"paymentMethod"`
	Notes             string      `json:"notes,omitempty"`
}

type Order struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
}
