package fraud

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/retail-banking-ledger/internal/domain/alert"
)

// Sink receives the warnings raised for an owner
type Sink interface {
	Report(ctx context.Context, ownerID uuid.UUID, warnings []Warning)
}

// MultiSink fans warnings out to every sink in order
type MultiSink []Sink

func (m MultiSink) Report(ctx context.Context, ownerID uuid.UUID, warnings []Warning) {
	for _, s := range m {
		s.Report(ctx, ownerID, warnings)
	}
}

// LogSink writes each warning to the audit log at WARN level
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(ctx context.Context, ownerID uuid.UUID, warnings []Warning) {
	for _, w := range warnings {
		s.logger.WarnContext(ctx, "Fraud heuristic triggered",
			"owner_id", ownerID.String(),
			"rule", string(w.Rule),
			"severity", string(w.Severity),
			"message", w.Message,
		)
	}
}

// MetricsSink counts warnings per rule and severity
type MetricsSink struct {
	counter *prometheus.CounterVec
}

func NewMetricsSink(counter *prometheus.CounterVec) *MetricsSink {
	return &MetricsSink{counter: counter}
}

func (s *MetricsSink) Report(_ context.Context, _ uuid.UUID, warnings []Warning) {
	for _, w := range warnings {
		s.counter.WithLabelValues(string(w.Rule), string(w.Severity)).Inc()
	}
}

// AsyncSink persists alerts on a non-blocking worker pool. When every worker
// is busy the alert is dropped and counted; Report never waits on the store.
type AsyncSink struct {
	pool    *ants.Pool
	repo    alert.Repository
	logger  *slog.Logger
	timeout time.Duration
	dropped atomic.Int64
}

// NewAsyncSink creates a sink backed by a pool of the given size
func NewAsyncSink(repo alert.Repository, poolSize int, timeout time.Duration, logger *slog.Logger) (*AsyncSink, error) {
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &AsyncSink{
		pool:    pool,
		repo:    repo,
		logger:  logger,
		timeout: timeout,
	}, nil
}

func (s *AsyncSink) Report(_ context.Context, ownerID uuid.UUID, warnings []Warning) {
	now := time.Now()
	for _, w := range warnings {
		a := &alert.Alert{
			ID:         uuid.New(),
			OwnerID:    ownerID,
			Rule:       string(w.Rule),
			Severity:   string(w.Severity),
			Message:    w.Message,
			DetectedAt: w.DetectedAt,
			CreatedAt:  now,
		}
		err := s.pool.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.repo.Create(ctx, a); err != nil {
				s.logger.Error("Failed to persist fraud alert",
					"owner_id", ownerID.String(),
					"rule", a.Rule,
					"error", err,
				)
			}
		})
		if errors.Is(err, ants.ErrPoolOverload) {
			s.dropped.Add(1)
			s.logger.Warn("Fraud alert dropped, alert writers are saturated",
				"owner_id", ownerID.String(),
				"rule", a.Rule,
			)
			continue
		}
		if err != nil {
			s.logger.Error("Failed to submit fraud alert to worker pool",
				"owner_id", ownerID.String(),
				"rule", a.Rule,
				"error", err,
			)
		}
	}
}

// Dropped returns how many alerts were discarded because the pool was full
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Running returns the number of in-flight alert writes
func (s *AsyncSink) Running() int {
	return s.pool.Running()
}

// Close waits for in-flight writes up to timeout and releases the pool
func (s *AsyncSink) Close(timeout time.Duration) error {
	return s.pool.ReleaseTimeout(timeout)
}
