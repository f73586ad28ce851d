package cart

import (
	"strings"
	"time"

	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// NewItem is the catalog snapshot of a product variant being put into a cart.
type NewItem struct {
	ProductID   string
	VariantID   string
	Name        string
	VariantName string
	Brand       string
	ImageURL    string
	PackSize    string
	Price       decimal.Decimal
	MRP         decimal.Decimal
	GSTPercent  decimal.Decimal
	Stock       int
	MOQ         int
	Available   bool
}

// Item is one line of a cart: a (product, variant) pair with its pricing and
// ordering constraints as last seen, plus the chosen quantity.
type Item struct {
	ProductID   string          `json:"product_id"`
	VariantID   string          `json:"variant_id"`
	Name        string          `json:"name"`
	VariantName string          `json:"variant_name,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	PackSize    string          `json:"pack_size,omitempty"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp"`
	GSTPercent  decimal.Decimal `json:"gst_percent"`
	Stock       int             `json:"stock"`
	MOQ         int             `json:"moq"`
	Available   bool            `json:"available"`
	Quantity    int             `json:"quantity"`
	AddedAt     time.Time       `json:"added_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type itemKey struct {
	productID string
	variantID string
}

func keyOf(productID, variantID string) itemKey {
	return itemKey{productID: strings.TrimSpace(productID), variantID: strings.TrimSpace(variantID)}
}

func (i Item) key() itemKey {
	return keyOf(i.ProductID, i.VariantID)
}

// MinQuantity is the smallest quantity the line may hold.
func (i Item) MinQuantity() int {
	if i.MOQ < 1 {
		return 1
	}
	return i.MOQ
}

// LineTotal is price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineMRP is MRP × quantity; a zero MRP falls back to the unit price.
func (i Item) LineMRP() decimal.Decimal {
	mrp := i.MRP
	if mrp.IsZero() {
		mrp = i.Price
	}
	return mrp.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineGST is the tax on the line, rounded to paise.
func (i Item) LineGST() decimal.Decimal {
	return i.LineTotal().Mul(i.GSTPercent).Div(hundred).Round(2)
}

func (n NewItem) validate() error {
	if strings.TrimSpace(n.ProductID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if strings.TrimSpace(n.VariantID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if n.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if n.MRP.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "mrp cannot be negative")
	}
	if n.GSTPercent.IsNegative() || n.GSTPercent.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "gst percent must be between 0 and 100")
	}
	if n.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if n.MOQ < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "moq cannot be negative")
	}
	return nil
}

func (n NewItem) toItem(now time.Time) Item {
	item := Item{
		ProductID: strings.TrimSpace(n.ProductID),
		VariantID: strings.TrimSpace(n.VariantID),
		AddedAt:   now,
		UpdatedAt: now,
	}
	item.applySnapshot(n)
	return item
}

// applySnapshot overwrites the denormalized catalog fields, keeping identity and quantity.
func (i *Item) applySnapshot(n NewItem) {
	i.Name = n.Name
	i.VariantName = n.VariantName
	i.Brand = n.Brand
	i.ImageURL = n.ImageURL
	i.PackSize = n.PackSize
	i.Price = n.Price
	i.MRP = n.MRP
	i.GSTPercent = n.GSTPercent
	i.Stock = n.Stock
	i.MOQ = n.MOQ
	if i.MOQ < 1 {
		i.MOQ = 1
	}
	i.Available = n.Available
}

func (i Item) sameSnapshot(n NewItem) bool {
	moq := n.MOQ
	if moq < 1 {
		moq = 1
	}
	return i.Price.Equal(n.Price) &&
		i.MRP.Equal(n.MRP) &&
		i.GSTPercent.Equal(n.GSTPercent) &&
		i.Stock == n.Stock &&
		i.MOQ == moq &&
		i.Available == n.Available &&
		i.Name == n.Name &&
		i.VariantName == n.VariantName
}

// clampQuantity bounds qty to [minQty, stock]; callers guarantee minQty <= stock.
func clampQuantity(qty, minQty, stock int) int {
	if qty < minQty {
		qty = minQty
	}
	if qty > stock {
		qty = stock
	}
	return qty
}

func cloneItems(items []Item) []Item {
	if len(items) == 0 {
		return []Item{}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func indexOf(items []Item, key itemKey) int {
	for i := range items {
		if items[i].key() == key {
			return i
		}
	}
	return -1
}
