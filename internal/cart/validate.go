package cart

import (
	"fmt"

	"github.com/kingshoppers/storefront/pkg/enums"
)

// ValidationError describes one cart line that breaks a stock, MOQ or
// availability rule. It is reported inline and never persisted.
type ValidationError struct {
	Type           enums.CartValidationErrorType `json:"type"`
	ProductID      string                        `json:"product_id"`
	VariantID      string                        `json:"variant_id"`
	Name           string                        `json:"name"`
	Requested      int                           `json:"requested"`
	AvailableStock int                           `json:"available_stock"`
	RequiredMOQ    int                           `json:"required_moq"`
	Message        string                        `json:"message"`
}

func newValidationError(item Item, kind enums.CartValidationErrorType, requested int) ValidationError {
	v := ValidationError{
		Type:           kind,
		ProductID:      item.ProductID,
		VariantID:      item.VariantID,
		Name:           item.Name,
		Requested:      requested,
		AvailableStock: item.Stock,
		RequiredMOQ:    item.MinQuantity(),
	}
	switch kind {
	case enums.CartValidationProductUnavailable:
		v.Message = fmt.Sprintf("%s is no longer available", displayName(item))
	case enums.CartValidationOutOfStock:
		v.Message = fmt.Sprintf("%s is out of stock", displayName(item))
	case enums.CartValidationInsufficientStock:
		v.Message = fmt.Sprintf("only %d of %s available", item.Stock, displayName(item))
	case enums.CartValidationBelowMOQ:
		v.Message = fmt.Sprintf("minimum order quantity for %s is %d", displayName(item), item.MinQuantity())
	}
	return v
}

func displayName(item Item) string {
	if item.Name == "" {
		return item.ProductID
	}
	if item.VariantName == "" {
		return item.Name
	}
	return item.Name + " (" + item.VariantName + ")"
}

// admissible reports why an item cannot hold any quantity at all, if it cannot.
func admissible(item Item, requested int) *ValidationError {
	var kind enums.CartValidationErrorType
	switch {
	case !item.Available:
		kind = enums.CartValidationProductUnavailable
	case item.Stock <= 0:
		kind = enums.CartValidationOutOfStock
	case item.MinQuantity() > item.Stock:
		kind = enums.CartValidationInsufficientStock
	default:
		return nil
	}
	v := newValidationError(item, kind, requested)
	return &v
}

// validateItems checks every line against its last-known snapshot.
// Unavailable and out-of-stock lines report a single error; otherwise a
// line can be both over stock and under MOQ.
func validateItems(items []Item) []ValidationError {
	errs := make([]ValidationError, 0)
	for _, item := range items {
		if !item.Available {
			errs = append(errs, newValidationError(item, enums.CartValidationProductUnavailable, item.Quantity))
			continue
		}
		if item.Stock <= 0 {
			errs = append(errs, newValidationError(item, enums.CartValidationOutOfStock, item.Quantity))
			continue
		}
		if item.Quantity > item.Stock {
			errs = append(errs, newValidationError(item, enums.CartValidationInsufficientStock, item.Quantity))
		}
		if item.Quantity < item.MinQuantity() {
			errs = append(errs, newValidationError(item, enums.CartValidationBelowMOQ, item.Quantity))
		}
	}
	return errs
}
