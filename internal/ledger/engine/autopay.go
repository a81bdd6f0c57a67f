package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AutoPayScheduler sweeps every owner for due auto-pay bills on an interval
type AutoPayScheduler struct {
	bills    *BillPaymentOrchestrator
	interval time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewAutoPayScheduler(logger *slog.Logger, bills *BillPaymentOrchestrator, interval time.Duration) *AutoPayScheduler {
	return &AutoPayScheduler{
		bills:    bills,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until ctx is done or Stop is called.
func (s *AutoPayScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting auto-pay scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Auto-pay scheduler stopping due to context cancellation")
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.Sweep(ctx, time.Now())
			}
		}
	}()
}

func (s *AutoPayScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	s.logger.Info("Auto-pay scheduler stopped")
}

// Sweep pays due bills for every owner and returns the number paid.
func (s *AutoPayScheduler) Sweep(ctx context.Context, asOf time.Time) int {
	ids, err := s.bills.engine.store.OwnerIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list owners for auto-pay", "error", err)
		return 0
	}

	paid := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		report, err := s.bills.PayDueAutoPayBills(ctx, id, asOf)
		if err != nil {
			s.logger.Error("Auto-pay sweep failed for owner", "owner_id", id.String(), "error", err)
			continue
		}
		paid += len(report.Paid)
	}
	if paid > 0 {
		s.logger.Info("Auto-pay sweep completed", "paid", paid, "owners", len(ids))
	}
	return paid
}
