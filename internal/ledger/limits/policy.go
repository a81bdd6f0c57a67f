// Package limits enforces per-currency transfer bounds and exchange caps.
package limits

import (
	"time"

	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CurrencyLimits holds the bounds that apply to one currency
type CurrencyLimits struct {
	MinTransfer      decimal.Decimal
	MaxTransfer      decimal.Decimal
	MinExchange      decimal.Decimal
	DailyExchangeCap decimal.Decimal
}

// DefaultLimits returns the bank's standard limits for every supported currency.
func DefaultLimits() map[shared.Currency]CurrencyLimits {
	return map[shared.Currency]CurrencyLimits{
		shared.CurrencyTRY: {
			MinTransfer:      decimal.NewFromInt(1),
			MaxTransfer:      decimal.NewFromInt(50000),
			MinExchange:      decimal.NewFromInt(10),
			DailyExchangeCap: decimal.NewFromInt(100000),
		},
		shared.CurrencyUSD: {
			MinTransfer:      decimal.NewFromInt(1),
			MaxTransfer:      decimal.NewFromInt(10000),
			MinExchange:      decimal.NewFromInt(1),
			DailyExchangeCap: decimal.NewFromInt(5000),
		},
		shared.CurrencyEUR: {
			MinTransfer:      decimal.NewFromInt(1),
			MaxTransfer:      decimal.NewFromInt(10000),
			MinExchange:      decimal.NewFromInt(1),
			DailyExchangeCap: decimal.NewFromInt(5000),
		},
		shared.CurrencyGBP: {
			MinTransfer:      decimal.NewFromInt(1),
			MaxTransfer:      decimal.NewFromInt(8000),
			MinExchange:      decimal.NewFromInt(1),
			DailyExchangeCap: decimal.NewFromInt(4000),
		},
	}
}

// Policy is stateless; callers supply the usage figures the checks need.
type Policy struct {
	limits   map[shared.Currency]CurrencyLimits
	location *time.Location
}

// NewPolicy creates a policy over the given table. Day boundaries for the
// exchange cap are computed in loc.
func NewPolicy(limits map[shared.Currency]CurrencyLimits, loc *time.Location) *Policy {
	if limits == nil {
		limits = DefaultLimits()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Policy{limits: limits, location: loc}
}

// Limits returns the table entry for currency.
func (p *Policy) Limits(currency shared.Currency) (CurrencyLimits, error) {
	l, ok := p.limits[currency]
	if !ok {
		return CurrencyLimits{}, shared.Errorf(shared.KindUnsupportedCurrency, "no limits configured for %s", currency)
	}
	return l, nil
}

// CheckTransfer enforces the [min, max] bounds for a single movement.
func (p *Policy) CheckTransfer(amount decimal.Decimal, currency shared.Currency) error {
	l, err := p.Limits(currency)
	if err != nil {
		return err
	}
	if amount.LessThan(l.MinTransfer) {
		return shared.Errorf(shared.KindLimitExceeded,
			"amount %s %s is below the minimum of %s %s per transaction, short by %s %s",
			amount.StringFixed(2), currency, l.MinTransfer.StringFixed(2), currency,
			l.MinTransfer.Sub(amount).StringFixed(2), currency)
	}
	if amount.GreaterThan(l.MaxTransfer) {
		return shared.Errorf(shared.KindLimitExceeded,
			"amount %s %s exceeds the maximum of %s %s per transaction by %s %s",
			amount.StringFixed(2), currency, l.MaxTransfer.StringFixed(2), currency,
			amount.Sub(l.MaxTransfer).StringFixed(2), currency)
	}
	return nil
}

// CheckMinimumExchange rejects exchanges smaller than the currency minimum.
func (p *Policy) CheckMinimumExchange(amount decimal.Decimal, currency shared.Currency) error {
	l, err := p.Limits(currency)
	if err != nil {
		return err
	}
	if amount.LessThan(l.MinExchange) {
		return shared.Errorf(shared.KindBelowMinimumAmount,
			"minimum exchange amount is %s %s, requested %s",
			l.MinExchange.StringFixed(2), currency, amount.StringFixed(2))
	}
	return nil
}

// CheckDailyExchangeCap allows the exchange iff used + amount <= cap.
func (p *Policy) CheckDailyExchangeCap(amount, used decimal.Decimal, currency shared.Currency) error {
	l, err := p.Limits(currency)
	if err != nil {
		return err
	}
	if used.Add(amount).GreaterThan(l.DailyExchangeCap) {
		remaining := decimal.Max(l.DailyExchangeCap.Sub(used), decimal.Zero)
		return shared.Errorf(shared.KindDailyLimitExceeded,
			"daily exchange limit of %s %s exceeded: used %s, requested %s, remaining %s",
			l.DailyExchangeCap.StringFixed(2), currency, used.StringFixed(2),
			amount.StringFixed(2), remaining.StringFixed(2))
	}
	return nil
}

// StartOfDay returns local midnight of the day containing t.
func (p *Policy) StartOfDay(t time.Time) time.Time {
	local := t.In(p.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.location)
}
