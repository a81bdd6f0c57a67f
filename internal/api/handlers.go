package api

import (
	"log/slog"
	"time"

	"github.com/retail-banking-ledger/internal/api/handler"
	"github.com/retail-banking-ledger/internal/ledger/engine"
)

type billService struct {
	*engine.Engine
	*engine.BillPaymentOrchestrator
}

type goalService struct {
	*engine.Engine
	*engine.SavingsGoalOrchestrator
}

// NewHandlers builds every route handler over one engine
func NewHandlers(logger *slog.Logger, e *engine.Engine, bills *engine.BillPaymentOrchestrator, goals *engine.SavingsGoalOrchestrator, location *time.Location) Handlers {
	return Handlers{
		Owners:       handler.NewOwnerHandler(logger, e),
		Transactions: handler.NewTransactionHandler(logger, e),
		Planning: handler.NewPlanningHandler(logger,
			billService{Engine: e, BillPaymentOrchestrator: bills},
			goalService{Engine: e, SavingsGoalOrchestrator: goals},
			location,
		),
	}
}
