package currency

import "strings"

// countryCurrency maps country or locale identifiers to a default currency
// for company signup. Unknown keys fall back to USD at the call site.
var countryCurrency = map[string]string{
	"IN":    "INR",
	"IND":   "INR",
	"INR":   "INR",
	"US":    "USD",
	"USA":   "USD",
	"US-EN": "USD",
	"GB":    "GBP",
	"UK":    "GBP",
	"EU":    "EUR",
	"DE":    "EUR",
	"FR":    "EUR",
	"ES":    "EUR",
	"IT":    "EUR",
	"NL":    "EUR",
	"ID":    "IDR",
	"JP":    "JPY",
	"SG":    "SGD",
	"AU":    "AUD",
	"CA":    "CAD",
	"CH":    "CHF",
	"BR":    "BRL",
}

// CurrencyForCountry resolves a country/locale key to its currency code.
// Returns empty string when the key is unknown.
func CurrencyForCountry(key string) string {
	if key == "" {
		return ""
	}
	return countryCurrency[strings.ToUpper(strings.TrimSpace(key))]
}
