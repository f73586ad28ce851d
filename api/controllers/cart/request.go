package cart

// AddItemRequest adds a catalog variant to the session cart. Pricing and
// stock come from the catalog, never from the client.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

// SetQuantityRequest sets an explicit line quantity. Zero removes the line.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
