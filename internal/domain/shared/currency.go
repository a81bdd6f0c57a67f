package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is one of the fixed set of currencies the bank holds accounts in
type Currency string

const (
	CurrencyTRY Currency = "TRY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// SupportedCurrencies lists every currency accounts can be opened in.
var SupportedCurrencies = []Currency{CurrencyTRY, CurrencyUSD, CurrencyEUR, CurrencyGBP}

// ParseCurrency validates a 3-letter code against the supported set.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.Valid() {
		return "", Errorf(KindUnsupportedCurrency, "unsupported currency %q", code)
	}
	return c, nil
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// MinorUnits is the number of decimal places amounts in c are rounded to.
func (c Currency) MinorUnits() int32 {
	return 2
}

// Round rounds an amount to the currency's minor units.
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.MinorUnits())
}

func (c Currency) String() string {
	return string(c)
}
