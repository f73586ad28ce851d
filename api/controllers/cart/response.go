package cart

import (
	cartdto "github.com/kingshoppers/storefront/api/controllers/cart/dto"
	cartsvc "github.com/kingshoppers/storefront/internal/cart"
)

func newCartView(engine *cartsvc.Engine) (cartdto.CartView, error) {
	formatted, err := engine.FormattedSummary()
	if err != nil {
		return cartdto.CartView{}, err
	}
	snapshot := engine.Snapshot()
	validation := engine.Validate()
	if validation == nil {
		validation = []cartsvc.ValidationError{}
	}
	return cartdto.CartView{
		SessionID:    snapshot.SessionID,
		Items:        snapshot.Items,
		ItemsCount:   snapshot.ItemsCount(),
		Summary:      snapshot.Summary,
		Formatted:    formatted,
		Validation:   validation,
		CanCheckout:  engine.CanCheckout(),
		ServerSynced: snapshot.ServerSynced,
		Version:      snapshot.Version,
		UpdatedAt:    snapshot.UpdatedAt,
	}, nil
}

func newMutationView(result cartsvc.MutationResult, view cartdto.CartView) cartdto.MutationView {
	return cartdto.MutationView{
		Item:      result.Item,
		Requested: result.Requested,
		Clamped:   result.Clamped,
		Removed:   result.Removed,
		Cart:      view,
	}
}
