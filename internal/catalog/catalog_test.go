package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/kingshoppers/storefront/internal/cart"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/shopspring/decimal"
)

type stubProducts struct {
	products []kingapi.Product
	err      error
	lastIDs  []string
}

func (s *stubProducts) ProductsByIDs(_ context.Context, ids []string) ([]kingapi.Product, error) {
	s.lastIDs = ids
	return s.products, s.err
}

func atta() kingapi.Product {
	return kingapi.Product{
		ID:         "p1",
		Name:       "Atta",
		Brand:      "King",
		GSTPercent: decimal.NewFromInt(5),
		IsActive:   true,
		Variants: []kingapi.Variant{
			{ID: "v1", Name: "5 kg", Price: decimal.NewFromInt(250), MRP: decimal.NewFromInt(280), Stock: 40, MOQ: 2, IsAvailable: true},
			{ID: "v2", Name: "10 kg", Price: decimal.NewFromInt(480), Stock: 0, MOQ: 1, IsAvailable: false},
		},
	}
}

func TestVariantMapsProduct(t *testing.T) {
	svc, err := NewService(&stubProducts{products: []kingapi.Product{atta()}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	item, err := svc.Variant(context.Background(), "p1", "v1")
	if err != nil {
		t.Fatalf("variant: %v", err)
	}
	if item.Name != "Atta" || item.VariantName != "5 kg" || item.MOQ != 2 || !item.Available {
		t.Fatalf("unexpected item %+v", item)
	}
	if !item.GSTPercent.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected product gst on item")
	}
}

func TestVariantNotFound(t *testing.T) {
	svc, _ := NewService(&stubProducts{products: []kingapi.Product{atta()}})
	if _, err := svc.Variant(context.Background(), "p1", "nope"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Variant(context.Background(), "", "v1"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInactiveProductIsUnavailable(t *testing.T) {
	product := atta()
	product.IsActive = false
	item := ToNewItem(product, product.Variants[0])
	if item.Available {
		t.Fatalf("inactive product must be unavailable")
	}
}

func TestSnapshotsDeduplicatesIDs(t *testing.T) {
	source := &stubProducts{products: []kingapi.Product{atta()}}
	svc, _ := NewService(source)
	items := []cart.Item{
		{ProductID: "p1", VariantID: "v1"},
		{ProductID: "p1", VariantID: "v2"},
		{ProductID: "p9", VariantID: "v1"},
	}
	snapshots, err := svc.Snapshots(context.Background(), items)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(source.lastIDs) != 2 {
		t.Fatalf("expected 2 distinct ids, got %v", source.lastIDs)
	}
	if len(snapshots) != 2 {
		t.Fatalf("expected both variants of p1, got %d", len(snapshots))
	}

	source.err = errors.New("boom")
	if _, err := svc.Snapshots(context.Background(), items); err == nil {
		t.Fatalf("expected error")
	}
}
