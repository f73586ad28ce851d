package enums

import "fmt"

// CartValidationErrorType enumerates the rule violations reported for cart lines.
type CartValidationErrorType string

const (
	CartValidationOutOfStock         CartValidationErrorType = "out_of_stock"
	CartValidationInsufficientStock  CartValidationErrorType = "insufficient_stock"
	CartValidationBelowMOQ           CartValidationErrorType = "below_moq"
	CartValidationProductUnavailable CartValidationErrorType = "product_unavailable"
)

var validCartValidationErrorTypes = []CartValidationErrorType{
	CartValidationOutOfStock,
	CartValidationInsufficientStock,
	CartValidationBelowMOQ,
	CartValidationProductUnavailable,
}

// String implements fmt.Stringer.
func (c CartValidationErrorType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CartValidationErrorType) IsValid() bool {
	for _, candidate := range validCartValidationErrorTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartValidationErrorType converts raw input into a CartValidationErrorType.
func ParseCartValidationErrorType(value string) (CartValidationErrorType, error) {
	for _, candidate := range validCartValidationErrorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart validation error type %q", value)
}
