package fx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource supplies a full rate table
type RateSource interface {
	Rates(ctx context.Context) (map[Pair]decimal.Decimal, error)
}

// StaticSource serves a fixed table, typically from configuration
type StaticSource map[Pair]decimal.Decimal

func (s StaticSource) Rates(context.Context) (map[Pair]decimal.Decimal, error) {
	out := make(map[Pair]decimal.Decimal, len(s))
	for p, r := range s {
		out[p] = r
	}
	return out, nil
}

// Refresher reloads the converter from a source on a fixed interval
type Refresher struct {
	converter *Converter
	source    RateSource
	interval  time.Duration
	logger    *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewRefresher(converter *Converter, source RateSource, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		converter: converter,
		source:    source,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

// Refresh loads the source once.
func (r *Refresher) Refresh(ctx context.Context) error {
	rates, err := r.source.Rates(ctx)
	if err != nil {
		return err
	}
	if err := r.converter.Load(rates, time.Now()); err != nil {
		return err
	}
	r.logger.Debug("Exchange rates refreshed", "pairs", len(rates))
	return nil
}

// Start loads the table synchronously and keeps refreshing it until Stop or
// ctx cancellation. A failed initial load is returned to the caller.
func (r *Refresher) Start(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	if r.interval <= 0 {
		return nil
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					// Keep serving the previous table; staleness checks take over if this persists
					r.logger.Error("Failed to refresh exchange rates", "error", err)
				}
			}
		}
	}()
	r.logger.Info("Exchange rate refresher started", "interval", r.interval)
	return nil
}

func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.wg.Wait()
	r.logger.Info("Exchange rate refresher stopped")
}
