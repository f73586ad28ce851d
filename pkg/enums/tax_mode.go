package enums

import (
	"fmt"
	"strings"
)

// TaxMode selects how GST is split on a cart summary.
type TaxMode string

const (
	// TaxModeIntraState splits GST evenly into CGST and SGST.
	TaxModeIntraState TaxMode = "intra"
	// TaxModeInterState books the whole GST amount as IGST.
	TaxModeInterState TaxMode = "inter"
)

// String implements fmt.Stringer.
func (t TaxMode) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t TaxMode) IsValid() bool {
	return t == TaxModeIntraState || t == TaxModeInterState
}

// ParseTaxMode converts raw input into a TaxMode.
func ParseTaxMode(value string) (TaxMode, error) {
	mode := TaxMode(strings.ToLower(strings.TrimSpace(value)))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid tax mode %q", value)
	}
	return mode, nil
}
