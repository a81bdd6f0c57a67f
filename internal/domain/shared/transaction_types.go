package shared

import "strings"

// TransactionKind defines the balance-affecting events an account can record
type TransactionKind string

const (
	TransactionKindDeposit          TransactionKind = "DEPOSIT"
	TransactionKindWithdraw         TransactionKind = "WITHDRAW"
	TransactionKindTransferIn       TransactionKind = "TRANSFER_IN"
	TransactionKindTransferOut      TransactionKind = "TRANSFER_OUT"
	TransactionKindTransferExternal TransactionKind = "TRANSFER_EXTERNAL"
	TransactionKindBillPayment      TransactionKind = "BILL_PAYMENT"
	TransactionKindExchangeIn       TransactionKind = "EXCHANGE_IN"
	TransactionKindExchangeOut      TransactionKind = "EXCHANGE_OUT"
	TransactionKindGoalContribution TransactionKind = "GOAL_CONTRIBUTION"
)

// IsCredit reports whether the kind increases the account balance.
func (k TransactionKind) IsCredit() bool {
	switch k {
	case TransactionKindDeposit, TransactionKindTransferIn, TransactionKindExchangeIn:
		return true
	}
	return false
}

// IsTransfer reports whether the kind moves money to a counterparty.
func (k TransactionKind) IsTransfer() bool {
	return k == TransactionKindTransferOut || k == TransactionKindTransferExternal
}

// Valid reports whether k is one of the known kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdraw, TransactionKindTransferIn,
		TransactionKindTransferOut, TransactionKindTransferExternal, TransactionKindBillPayment,
		TransactionKindExchangeIn, TransactionKindExchangeOut, TransactionKindGoalContribution:
		return true
	}
	return false
}

// TransactionStatus defines transaction processing states
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// AccountStatus defines the lifecycle of an account
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusBlocked AccountStatus = "BLOCKED"
	AccountStatusClosed  AccountStatus = "CLOSED"
)

// BillStatus is derived from the due date and the paid flag
type BillStatus string

const (
	BillStatusPending BillStatus = "PENDING"
	BillStatusPaid    BillStatus = "PAID"
	BillStatusOverdue BillStatus = "OVERDUE"
)

// GoalStatus is derived from progress against the elapsed time to the target date
type GoalStatus string

const (
	GoalStatusOnTrack   GoalStatus = "ON_TRACK"
	GoalStatusBehind    GoalStatus = "BEHIND"
	GoalStatusCompleted GoalStatus = "COMPLETED"
	GoalStatusAbandoned GoalStatus = "ABANDONED"
)

// Category tags a transaction for spending analysis
type Category string

const (
	CategoryTransfer      Category = "transfer"
	CategoryShopping      Category = "shopping"
	CategoryBills         Category = "bills"
	CategoryGroceries     Category = "groceries"
	CategoryDining        Category = "dining"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
	CategoryEducation     Category = "education"
	CategorySalary        Category = "salary"
	CategorySavings       Category = "savings"
	CategoryExchange      Category = "exchange"
	CategoryOther         Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryTransfer: {}, CategoryShopping: {}, CategoryBills: {}, CategoryGroceries: {},
	CategoryDining: {}, CategoryTransport: {}, CategoryEntertainment: {}, CategoryHealth: {},
	CategoryEducation: {}, CategorySalary: {}, CategorySavings: {}, CategoryExchange: {},
	CategoryOther: {},
}

// legacyCategoryAliases maps historical and localized tags onto the closed set.
var legacyCategoryAliases = map[string]Category{
	"market":        CategoryGroceries,
	"grocery":       CategoryGroceries,
	"supermarket":   CategoryGroceries,
	"restaurant":    CategoryDining,
	"food":          CategoryDining,
	"cafe":          CategoryDining,
	"utilities":     CategoryBills,
	"utility":       CategoryBills,
	"fatura":        CategoryBills,
	"bill":          CategoryBills,
	"bill_payment":  CategoryBills,
	"taxi":          CategoryTransport,
	"fuel":          CategoryTransport,
	"ulaşım":        CategoryTransport,
	"alışveriş":     CategoryShopping,
	"shop":          CategoryShopping,
	"sağlık":        CategoryHealth,
	"pharmacy":      CategoryHealth,
	"eğitim":        CategoryEducation,
	"maaş":          CategorySalary,
	"income":        CategorySalary,
	"birikim":       CategorySavings,
	"goal":          CategorySavings,
	"doviz":         CategoryExchange,
	"döviz":         CategoryExchange,
	"fx":            CategoryExchange,
	"eft":           CategoryTransfer,
	"havale":        CategoryTransfer,
	"entertainment": CategoryEntertainment,
	"eğlence":       CategoryEntertainment,
}

// ParseCategory resolves a free-form tag to a Category. Unknown or empty tags
// map to fallback.
func ParseCategory(tag string, fallback Category) Category {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if normalized == "" {
		return fallback
	}
	if _, ok := knownCategories[Category(normalized)]; ok {
		return Category(normalized)
	}
	if c, ok := legacyCategoryAliases[normalized]; ok {
		return c
	}
	return fallback
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
