// Package fraud scores money movements against a short per-owner history.
// Warnings are advisory: they are reported to a Sink and returned to the
// caller but never block an operation.
package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Rule names a heuristic
type Rule string

const (
	RuleSameCounterparty Rule = "SAME_IBAN_MULTIPLE_TRANSFERS"
	RuleHighHourlyVolume Rule = "HIGH_HOURLY_VOLUME"
	RuleUnusualAmount    Rule = "UNUSUAL_AMOUNT"
	RuleRapidSuccession  Rule = "RAPID_SUCCESSION"
)

// Severity grades a warning
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Warning is produced when a heuristic matches
type Warning struct {
	Rule       Rule      `json:"rule"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detected_at"`
}

// Activity is one money movement as seen by the detector
type Activity struct {
	Kind         shared.TransactionKind
	Amount       decimal.Decimal
	Currency     shared.Currency
	Counterparty string
	Timestamp    time.Time
}

// Config tunes the heuristics
type Config struct {
	WindowSize                int           // Most recent activities kept per owner
	MaxAge                    time.Duration // Activities older than this are pruned
	JanitorInterval           time.Duration // How often idle owners are evicted
	SameCounterpartyWindow    time.Duration
	SameCounterpartyThreshold int
	HourlyVolumeThresholds    map[shared.Currency]decimal.Decimal
	UnusualAmountMultiplier   decimal.Decimal
	UnusualAmountMinHistory   int
	RapidSuccessionInterval   time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		WindowSize:                100,
		MaxAge:                    24 * time.Hour,
		JanitorInterval:           5 * time.Minute,
		SameCounterpartyWindow:    5 * time.Minute,
		SameCounterpartyThreshold: 3,
		HourlyVolumeThresholds: map[shared.Currency]decimal.Decimal{
			shared.CurrencyTRY: decimal.NewFromInt(100000),
			shared.CurrencyUSD: decimal.NewFromInt(10000),
			shared.CurrencyEUR: decimal.NewFromInt(10000),
			shared.CurrencyGBP: decimal.NewFromInt(8000),
		},
		UnusualAmountMultiplier: decimal.NewFromInt(10),
		UnusualAmountMinHistory: 5,
		RapidSuccessionInterval: time.Second,
	}
}

type history struct {
	mu       sync.Mutex
	entries  []Activity
	lastSeen time.Time
}

// Detector keeps a bounded activity window per owner
type Detector struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger

	mu        sync.Mutex
	histories map[uuid.UUID]*history

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

// NewDetector creates a detector. A nil sink discards warnings.
func NewDetector(cfg Config, sink Sink, logger *slog.Logger) *Detector {
	if sink == nil {
		sink = MultiSink{}
	}
	return &Detector{
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
		histories: make(map[uuid.UUID]*history),
		stop:      make(chan struct{}),
	}
}

// Start launches the janitor that evicts idle owners.
func (d *Detector) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		if d.cfg.JanitorInterval <= 0 {
			return
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ticker := time.NewTicker(d.cfg.JanitorInterval)
			defer ticker.Stop()

			d.logger.Info("Fraud detector janitor started", "interval", d.cfg.JanitorInterval)
			for {
				select {
				case <-ctx.Done():
					return
				case <-d.stop:
					return
				case now := <-ticker.C:
					if evicted := d.evictIdle(now); evicted > 0 {
						d.logger.Debug("Evicted idle fraud histories", "count", evicted)
					}
				}
			}
		}()
	})
}

// Stop halts the janitor and waits for it to exit.
func (d *Detector) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
	})
	d.wg.Wait()
	d.logger.Info("Fraud detector stopped")
}

// Record appends the activity to the owner's window, evaluates every rule and
// reports any warnings. It never fails.
func (d *Detector) Record(ctx context.Context, ownerID uuid.UUID, act Activity) []Warning {
	h := d.historyFor(ownerID)

	h.mu.Lock()
	h.prune(act.Timestamp, d.cfg.MaxAge)
	prior := h.entries
	warnings := d.evaluate(prior, act)
	h.entries = append(h.entries, act)
	if over := len(h.entries) - d.cfg.WindowSize; d.cfg.WindowSize > 0 && over > 0 {
		h.entries = append([]Activity(nil), h.entries[over:]...)
	}
	h.lastSeen = act.Timestamp
	h.mu.Unlock()

	if len(warnings) > 0 {
		d.sink.Report(ctx, ownerID, warnings)
	}
	return warnings
}

// Tracked returns the number of owners with a live history.
func (d *Detector) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.histories)
}

func (d *Detector) historyFor(ownerID uuid.UUID) *history {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.histories[ownerID]
	if !ok {
		h = &history{}
		d.histories[ownerID] = h
	}
	return h
}

func (d *Detector) evictIdle(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	evicted := 0
	for id, h := range d.histories {
		h.mu.Lock()
		idle := now.Sub(h.lastSeen) > d.cfg.MaxAge
		h.mu.Unlock()
		if idle {
			delete(d.histories, id)
			evicted++
		}
	}
	return evicted
}

func (h *history) prune(now time.Time, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	cutoff := now.Add(-maxAge)
	i := 0
	for i < len(h.entries) && h.entries[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		h.entries = append([]Activity(nil), h.entries[i:]...)
	}
}

func (d *Detector) evaluate(prior []Activity, act Activity) []Warning {
	var warnings []Warning
	warn := func(rule Rule, severity Severity, format string, args ...any) {
		warnings = append(warnings, Warning{
			Rule:       rule,
			Severity:   severity,
			Message:    fmt.Sprintf(format, args...),
			DetectedAt: act.Timestamp,
		})
	}

	if act.Kind.IsTransfer() && act.Counterparty != "" {
		count := 1
		since := act.Timestamp.Add(-d.cfg.SameCounterpartyWindow)
		for _, p := range prior {
			if p.Kind.IsTransfer() && p.Counterparty == act.Counterparty && !p.Timestamp.Before(since) {
				count++
			}
		}
		if count >= d.cfg.SameCounterpartyThreshold {
			warn(RuleSameCounterparty, SeverityHigh,
				"%d transfers to %s within %s", count, act.Counterparty, d.cfg.SameCounterpartyWindow)
		}
	}

	if threshold, ok := d.cfg.HourlyVolumeThresholds[act.Currency]; ok {
		total := act.Amount
		since := act.Timestamp.Add(-time.Hour)
		for _, p := range prior {
			if p.Currency == act.Currency && p.Timestamp.After(since) {
				total = total.Add(p.Amount)
			}
		}
		if total.GreaterThan(threshold) {
			warn(RuleHighHourlyVolume, SeverityMedium,
				"%s %s moved in the last hour exceeds %s %s",
				total.StringFixed(2), act.Currency, threshold.StringFixed(2), act.Currency)
		}
	}

	sum := decimal.Zero
	n := 0
	for _, p := range prior {
		if p.Currency == act.Currency {
			sum = sum.Add(p.Amount)
			n++
		}
	}
	if n >= d.cfg.UnusualAmountMinHistory && n > 0 {
		avg := sum.Div(decimal.NewFromInt(int64(n)))
		if act.Amount.GreaterThan(avg.Mul(d.cfg.UnusualAmountMultiplier)) {
			warn(RuleUnusualAmount, SeverityMedium,
				"amount %s %s is more than %sx the average of %s",
				act.Amount.StringFixed(2), act.Currency, d.cfg.UnusualAmountMultiplier, avg.StringFixed(2))
		}
	}

	if len(prior) > 0 {
		last := prior[len(prior)-1]
		if gap := act.Timestamp.Sub(last.Timestamp); gap >= 0 && gap < d.cfg.RapidSuccessionInterval {
			warn(RuleRapidSuccession, SeverityLow, "operations %s apart", gap)
		}
	}

	return warnings
}
