package normalize

import (
	"fmt"
	"strings"
)

// FreeLabel is the display price of a free event
const FreeLabel = "Free"

// minorUnitThreshold: minimum prices at or above this are read as cents
const minorUnitThreshold = 100

// MinPrice is a minimum price with its currency as found in listing state
type MinPrice struct {
	Value    *float64
	Currency string
}

// PriceInfo gathers every price hint a raw record may carry
type PriceInfo struct {
	IsFree   bool
	MinPrice *MinPrice
	Display  string // pre-rendered ticket-availability string
	Price    string // direct price field
}

// FormatPrice resolves a display price. The first matching rule wins:
// free flag, minimum price, ticket-availability display string, direct price.
// Returns "" when nothing is known.
func FormatPrice(p PriceInfo) string {
	if p.IsFree {
		return FreeLabel
	}

	if p.MinPrice != nil && p.MinPrice.Value != nil {
		amount := *p.MinPrice.Value
		if amount >= minorUnitThreshold {
			amount /= 100
		}
		return FromPrice(amount, p.MinPrice.Currency)
	}

	if d := strings.TrimSpace(p.Display); d != "" {
		return d
	}

	return strings.TrimSpace(p.Price)
}

// FromMinorUnits renders a price given in minor units (cents), e.g. 2300 USD
// becomes "From $23.00".
func FromMinorUnits(value float64, currency string) string {
	return FromPrice(value/100, currency)
}

// FromPrice renders a whole-unit amount as "From <symbol><amount>"
func FromPrice(amount float64, currency string) string {
	return fmt.Sprintf("From %s%.2f", CurrencySymbol(currency), amount)
}

// CurrencySymbol maps an ISO currency code to its display prefix. Unknown codes
// render as the code followed by a space; an empty code is treated as USD.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch code {
	case "", "USD":
		return "$"
	case "GBP":
		return "£"
	case "EUR":
		return "€"
	default:
		return code + " "
	}
}
