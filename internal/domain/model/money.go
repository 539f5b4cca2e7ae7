package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the ISO code of the mobile-money rails.
const DefaultCurrency = "TZS"

// CleanAmount rounds to whole shillings; the provider rejects fractions.
func CleanAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(0)
}

// IsPositive reports whether amount is strictly above zero after cleaning.
func IsPositive(amount decimal.Decimal) bool {
	return CleanAmount(amount).GreaterThan(decimal.Zero)
}

// PaymentMethod is the mobile-money network the payer uses.
type PaymentMethod string

const (
	MethodMpesa       PaymentMethod = "MPESA"
	MethodTigoPesa    PaymentMethod = "TIGOPESA"
	MethodAirtelMoney PaymentMethod = "AIRTELMONEY"
	MethodHaloPesa    PaymentMethod = "HALOPESA"
)

var operatorPrefixes = map[string]PaymentMethod{
	"74": MethodMpesa, "75": MethodMpesa, "76": MethodMpesa,
	"65": MethodTigoPesa, "67": MethodTigoPesa, "71": MethodTigoPesa,
	"68": MethodAirtelMoney, "69": MethodAirtelMoney, "78": MethodAirtelMoney,
	"61": MethodHaloPesa, "62": MethodHaloPesa,
}

// FormatPhone normalises a local or international number to 255XXXXXXXXX.
func FormatPhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "+", "").Replace(strings.TrimSpace(phone))
	switch {
	case strings.HasPrefix(p, "255"):
		return p
	case strings.HasPrefix(p, "0"):
		return "255" + p[1:]
	case len(p) == 9:
		return "255" + p
	default:
		return p
	}
}

// DetectPaymentMethod maps the operator prefix to a network. Unknown
// prefixes fall back to M-Pesa.
func DetectPaymentMethod(phone string) PaymentMethod {
	p := FormatPhone(phone)
	if len(p) >= 5 && strings.HasPrefix(p, "255") {
		if m, ok := operatorPrefixes[p[3:5]]; ok {
			return m
		}
	}
	return MethodMpesa
}

// ValidPhone accepts only normalised Tanzanian mobile numbers.
func ValidPhone(phone string) bool {
	p := FormatPhone(phone)
	if len(p) != 12 || !strings.HasPrefix(p, "255") {
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
