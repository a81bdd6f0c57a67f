package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/fraud"
	"github.com/shopspring/decimal"
)

// ContributionRequest moves money from an account into a savings goal
type ContributionRequest struct {
	GoalID    uuid.UUID
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// SavingsGoalOrchestrator funds savings goals from the owner's accounts
type SavingsGoalOrchestrator struct {
	engine *Engine
}

func NewSavingsGoalOrchestrator(e *Engine) *SavingsGoalOrchestrator {
	return &SavingsGoalOrchestrator{engine: e}
}

func (s *SavingsGoalOrchestrator) Contribute(ctx context.Context, ownerID uuid.UUID, req ContributionRequest) (*Result, error) {
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}
	e := s.engine
	return e.execute(ctx, "goal_contribution", ownerID, func(o *owner.Owner, res *Result) error {
		now := e.now()
		goal, err := o.Goal(req.GoalID)
		if err != nil {
			return err
		}
		if !goal.AcceptsContributions(now) {
			return shared.Errorf(shared.KindGoalClosed, "savings goal %q is %s", goal.Name, goal.StatusAt(now))
		}
		acc, err := activeAccount(o, req.AccountID)
		if err != nil {
			return err
		}
		if acc.Currency != goal.Currency {
			return shared.Errorf(shared.KindCurrencyMismatch,
				"savings goal %q is in %s but the account holds %s", goal.Name, goal.Currency, acc.Currency)
		}

		res.Warnings = e.record(ctx, o.ID, fraud.Activity{
			Kind:      shared.TransactionKindGoalContribution,
			Amount:    req.Amount,
			Currency:  acc.Currency,
			Timestamp: now,
		})
		if err := checkDeadline(ctx); err != nil {
			return err
		}

		tx, err := o.Post(acc.ID, owner.Posting{
			Kind:         shared.TransactionKindGoalContribution,
			Amount:       req.Amount,
			Counterparty: goal.ID.String(),
			Description:  "savings: " + goal.Name,
		}, now)
		if err != nil {
			return err
		}
		goal, err = o.RecordContribution(goal.ID, owner.Contribution{
			TransactionID: tx.ID,
			AccountID:     acc.ID,
			Amount:        req.Amount,
			Timestamp:     now,
		})
		if err != nil {
			return err
		}
		res.addTransaction(tx, acc)
		res.Goal = goal
		return nil
	})
}
