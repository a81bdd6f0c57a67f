// Package fx quotes exchange rates and reserves them for the duration of a
// currency exchange.
package fx

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// rateScale is the precision derived (inverse and cross) rates are rounded to.
const rateScale = 6

// Pair is an ordered currency pair; a rate r means 1 From = r To
type Pair struct {
	From shared.Currency `json:"from"`
	To   shared.Currency `json:"to"`
}

func (p Pair) String() string {
	return string(p.From) + "/" + string(p.To)
}

// Validate checks both currencies are supported and distinct.
func (p Pair) Validate() error {
	if !p.From.Valid() || !p.To.Valid() {
		return shared.Errorf(shared.KindUnsupportedCurrencyPair, "unsupported currency pair %s", p)
	}
	if p.From == p.To {
		return shared.Errorf(shared.KindUnsupportedCurrencyPair, "currency pair %s has identical legs", p)
	}
	return nil
}

// ParsePair parses "USD/TRY" or "USDTRY".
func ParsePair(s string) (Pair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "/", "")
	if len(s) != 6 {
		return Pair{}, shared.Errorf(shared.KindUnsupportedCurrencyPair, "invalid currency pair %q", s)
	}
	p := Pair{From: shared.Currency(s[:3]), To: shared.Currency(s[3:])}
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	return p, nil
}

type rateEntry struct {
	rate      decimal.Decimal
	updatedAt time.Time
}

// Converter quotes rates from an in-memory table that is refreshed in the
// background. Missing pairs are derived from the inverse or crossed via USD.
type Converter struct {
	mu     sync.RWMutex
	rates  map[Pair]rateEntry
	maxAge time.Duration
	now    func() time.Time
}

// NewConverter creates an empty converter. Rates older than maxAge are
// treated as unavailable; zero disables the check.
func NewConverter(maxAge time.Duration) *Converter {
	return &Converter{
		rates:  make(map[Pair]rateEntry),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SetRate stores a quoted rate for the pair.
func (c *Converter) SetRate(pair Pair, rate decimal.Decimal, at time.Time) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	if !rate.IsPositive() {
		return shared.Errorf(shared.KindInvalidRequest, "rate for %s must be positive, got %s", pair, rate)
	}
	c.mu.Lock()
	c.rates[pair] = rateEntry{rate: rate, updatedAt: at}
	c.mu.Unlock()
	return nil
}

// Load replaces every rate in the table.
func (c *Converter) Load(rates map[Pair]decimal.Decimal, at time.Time) error {
	fresh := make(map[Pair]rateEntry, len(rates))
	for pair, rate := range rates {
		if err := pair.Validate(); err != nil {
			return err
		}
		if !rate.IsPositive() {
			return shared.Errorf(shared.KindInvalidRequest, "rate for %s must be positive, got %s", pair, rate)
		}
		fresh[pair] = rateEntry{rate: rate, updatedAt: at}
	}
	c.mu.Lock()
	c.rates = fresh
	c.mu.Unlock()
	return nil
}

// Quote returns the rate converting one unit of from into to.
func (c *Converter) Quote(from, to shared.Currency) (decimal.Decimal, error) {
	pair := Pair{From: from, To: to}
	if !from.Valid() || !to.Valid() {
		return decimal.Zero, shared.Errorf(shared.KindUnsupportedCurrencyPair, "unsupported currency pair %s", pair)
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if rate, ok, err := c.lookup(pair); ok || err != nil {
		return rate, err
	}
	if from != shared.CurrencyUSD && to != shared.CurrencyUSD {
		viaFrom, okFrom, err := c.lookup(Pair{From: from, To: shared.CurrencyUSD})
		if err != nil {
			return decimal.Zero, err
		}
		viaTo, okTo, err := c.lookup(Pair{From: shared.CurrencyUSD, To: to})
		if err != nil {
			return decimal.Zero, err
		}
		if okFrom && okTo {
			return viaFrom.Mul(viaTo).Round(rateScale), nil
		}
	}
	return decimal.Zero, shared.Errorf(shared.KindRateUnavailable, "no exchange rate available for %s", pair)
}

// Convert quotes the pair and converts amount, rounded to the target
// currency's minor units.
func (c *Converter) Convert(amount decimal.Decimal, from, to shared.Currency) (converted, rate decimal.Decimal, err error) {
	rate, err = c.Quote(from, to)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return to.Round(amount.Mul(rate)), rate, nil
}

// Snapshot returns a copy of the stored rates.
func (c *Converter) Snapshot() map[Pair]decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Pair]decimal.Decimal, len(c.rates))
	for p, e := range c.rates {
		out[p] = e.rate
	}
	return out
}

// lookup resolves a pair from the direct or inverse entry. Must hold c.mu.
func (c *Converter) lookup(pair Pair) (decimal.Decimal, bool, error) {
	if e, ok := c.rates[pair]; ok {
		if err := c.checkFresh(pair, e); err != nil {
			return decimal.Zero, false, err
		}
		return e.rate, true, nil
	}
	inverse := Pair{From: pair.To, To: pair.From}
	if e, ok := c.rates[inverse]; ok {
		if err := c.checkFresh(inverse, e); err != nil {
			return decimal.Zero, false, err
		}
		return decimal.NewFromInt(1).DivRound(e.rate, rateScale), true, nil
	}
	return decimal.Zero, false, nil
}

func (c *Converter) checkFresh(pair Pair, e rateEntry) error {
	if c.maxAge <= 0 {
		return nil
	}
	if age := c.now().Sub(e.updatedAt); age > c.maxAge {
		return shared.Errorf(shared.KindRateUnavailable,
			"exchange rate for %s is stale (%s old)", pair, age.Truncate(time.Second))
	}
	return nil
}

// ParseRates parses "USD/TRY=32.5,EUR/USD=1.08" into a rate table.
func ParseRates(s string) (map[Pair]decimal.Decimal, error) {
	rates := make(map[Pair]decimal.Decimal)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid rate entry %q", item)
		}
		pair, err := ParsePair(key)
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", pair, err)
		}
		rates[pair] = rate
	}
	return rates, nil
}
