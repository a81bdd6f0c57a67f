package owner

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Contribution is an append-only deposit into a savings goal
type Contribution struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

// SavingsGoal tracks progress towards a target amount by a target date
type SavingsGoal struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	TargetAmount  decimal.Decimal   `json:"target_amount"`
	CurrentAmount decimal.Decimal   `json:"current_amount"`
	Currency      shared.Currency   `json:"currency"`
	TargetDate    time.Time         `json:"target_date"`
	Status        shared.GoalStatus `json:"status"`
	Contributions []Contribution    `json:"contributions"`
	CreatedAt     time.Time         `json:"created_at"`
}

// StatusAt projects progress linearly between creation and the target date.
func (g *SavingsGoal) StatusAt(now time.Time) shared.GoalStatus {
	if g.Status == shared.GoalStatusAbandoned {
		return shared.GoalStatusAbandoned
	}
	if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		return shared.GoalStatusCompleted
	}
	if !now.Before(g.TargetDate) {
		return shared.GoalStatusBehind
	}

	total := g.TargetDate.Sub(g.CreatedAt)
	if total <= 0 {
		return shared.GoalStatusBehind
	}
	elapsed := now.Sub(g.CreatedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	expected := g.TargetAmount.Mul(decimal.NewFromInt(int64(elapsed))).Div(decimal.NewFromInt(int64(total)))
	if g.CurrentAmount.GreaterThanOrEqual(expected) {
		return shared.GoalStatusOnTrack
	}
	return shared.GoalStatusBehind
}

// AcceptsContributions reports whether the goal is still open.
func (g *SavingsGoal) AcceptsContributions(now time.Time) bool {
	s := g.StatusAt(now)
	return s != shared.GoalStatusCompleted && s != shared.GoalStatusAbandoned
}

func (g *SavingsGoal) contribute(c Contribution) {
	g.CurrentAmount = g.CurrentAmount.Add(c.Amount)
	g.Contributions = append(g.Contributions, c)
	g.Status = g.StatusAt(c.Timestamp)
}
