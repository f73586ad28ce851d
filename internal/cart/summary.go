package cart

import (
	"github.com/kingshoppers/storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Summary holds the derived totals of a cart. It is recomputed on every
// mutation and on load, never trusted from storage.
type Summary struct {
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalMRP      decimal.Decimal `json:"total_mrp"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	IGST          decimal.Decimal `json:"igst"`
	TotalGST      decimal.Decimal `json:"total_gst"`
	Savings       decimal.Decimal `json:"savings"`
	Total         decimal.Decimal `json:"total"`
	TaxMode       enums.TaxMode   `json:"tax_mode"`
}

// ComputeSummary derives the totals for items under the given tax mode.
// GST is exclusive: it is added on top of the price.
func ComputeSummary(items []Item, mode enums.TaxMode) Summary {
	s := Summary{
		Subtotal: decimal.Zero,
		TotalMRP: decimal.Zero,
		CGST:     decimal.Zero,
		SGST:     decimal.Zero,
		IGST:     decimal.Zero,
		TotalGST: decimal.Zero,
		Savings:  decimal.Zero,
		Total:    decimal.Zero,
		TaxMode:  mode,
	}
	for _, item := range items {
		s.ItemCount++
		s.TotalQuantity += item.Quantity
		s.Subtotal = s.Subtotal.Add(item.LineTotal())
		s.TotalMRP = s.TotalMRP.Add(item.LineMRP())
		s.TotalGST = s.TotalGST.Add(item.LineGST())
	}

	switch mode {
	case enums.TaxModeInterState:
		s.IGST = s.TotalGST
	case enums.TaxModeIntraState:
		s.CGST, s.SGST = splitGST(s.TotalGST)
	default:
		s.TaxMode = enums.TaxModeIntraState
		s.CGST, s.SGST = splitGST(s.TotalGST)
	}

	if savings := s.TotalMRP.Sub(s.Subtotal); savings.IsPositive() {
		s.Savings = savings
	}
	s.Total = s.Subtotal.Add(s.TotalGST)
	return s
}

// splitGST halves the tax; the odd paisa lands on SGST.
func splitGST(total decimal.Decimal) (cgst, sgst decimal.Decimal) {
	cgst = total.Div(two).RoundFloor(2)
	return cgst, total.Sub(cgst)
}
