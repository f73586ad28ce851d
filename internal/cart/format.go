package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormattedSummary is Summary rendered for display.
type FormattedSummary struct {
	Subtotal string `json:"subtotal"`
	TotalMRP string `json:"total_mrp"`
	CGST     string `json:"cgst"`
	SGST     string `json:"sgst"`
	IGST     string `json:"igst"`
	TotalGST string `json:"total_gst"`
	Savings  string `json:"savings"`
	Total    string `json:"total"`
}

// Formatter renders money in one currency and locale.
type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter builds a Formatter from an ISO 4217 code and a BCP 47 locale.
func NewFormatter(currencyCode, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Formatter{unit: unit, printer: message.NewPrinter(tag)}, nil
}

// Money formats a single amount with the currency symbol. The result is for
// display only: rounding to paise happens on the decimal, and the float64
// handed to the locale printer is exact for any realistic cart total.
func (f *Formatter) Money(amount decimal.Decimal) string {
	display := amount.Round(2).InexactFloat64()
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(display)))
}

// Format renders every money field of s.
func (f *Formatter) Format(s Summary) FormattedSummary {
	return FormattedSummary{
		Subtotal: f.Money(s.Subtotal),
		TotalMRP: f.Money(s.TotalMRP),
		CGST:     f.Money(s.CGST),
		SGST:     f.Money(s.SGST),
		IGST:     f.Money(s.IGST),
		TotalGST: f.Money(s.TotalGST),
		Savings:  f.Money(s.Savings),
		Total:    f.Money(s.Total),
	}
}
