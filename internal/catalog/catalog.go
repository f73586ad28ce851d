package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingshoppers/storefront/internal/cart"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/kingapi"
)

type productSource interface {
	ProductsByIDs(ctx context.Context, ids []string) ([]kingapi.Product, error)
}

// Service turns remote catalog data into cart snapshots.
type Service struct {
	products productSource
}

// NewService builds the catalog lookup.
func NewService(products productSource) (*Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product source required")
	}
	return &Service{products: products}, nil
}

// Variant fetches the current snapshot of one product variant.
func (s *Service) Variant(ctx context.Context, productID, variantID string) (cart.NewItem, error) {
	productID = strings.TrimSpace(productID)
	variantID = strings.TrimSpace(variantID)
	if productID == "" || variantID == "" {
		return cart.NewItem{}, pkgerrors.New(pkgerrors.CodeValidation, "product id and variant id are required")
	}

	products, err := s.products.ProductsByIDs(ctx, []string{productID})
	if err != nil {
		return cart.NewItem{}, err
	}
	for _, product := range products {
		if product.ID != productID {
			continue
		}
		if variant, ok := product.Variant(variantID); ok {
			return ToNewItem(product, variant), nil
		}
	}
	return cart.NewItem{}, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
}

// Snapshots fetches fresh data for every product in items. Variants the
// API no longer returns are simply absent from the result.
func (s *Service) Snapshots(ctx context.Context, items []cart.Item) ([]cart.NewItem, error) {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]cart.NewItem, 0, len(items))
	for _, product := range products {
		for _, variant := range product.Variants {
			out = append(out, ToNewItem(product, variant))
		}
	}
	return out, nil
}

// ToNewItem flattens a product variant into a cart snapshot.
func ToNewItem(product kingapi.Product, variant kingapi.Variant) cart.NewItem {
	return cart.NewItem{
		ProductID:   product.ID,
		VariantID:   variant.ID,
		Name:        product.Name,
		VariantName: variant.Name,
		Brand:       product.Brand,
		ImageURL:    product.ImageURL,
		PackSize:    variant.PackSize,
		Price:       variant.Price,
		MRP:         variant.MRP,
		GSTPercent:  product.GSTPercent,
		Stock:       variant.Stock,
		MOQ:         variant.MOQ,
		Available:   product.IsActive && variant.IsAvailable,
	}
}
