package shared

import (
	"errors"
	"fmt"
)

// Kind identifies a ledger failure in a stable, machine readable way
type Kind string

const (
	KindInvalidAmount           Kind = "INVALID_AMOUNT"
	KindInvalidRequest          Kind = "INVALID_REQUEST"
	KindSameAccount             Kind = "SAME_ACCOUNT"
	KindSelfTransferRejected    Kind = "SELF_TRANSFER_REJECTED"
	KindUnsupportedCurrency     Kind = "UNSUPPORTED_CURRENCY"
	KindOwnerNotFound           Kind = "OWNER_NOT_FOUND"
	KindOwnerExists             Kind = "OWNER_EXISTS"
	KindAccountNotFound         Kind = "ACCOUNT_NOT_FOUND"
	KindAccountInactive         Kind = "ACCOUNT_INACTIVE"
	KindAccountHasBalance       Kind = "ACCOUNT_HAS_BALANCE"
	KindInsufficientFunds       Kind = "INSUFFICIENT_FUNDS"
	KindCurrencyMismatch        Kind = "CURRENCY_MISMATCH"
	KindBillNotFound            Kind = "BILL_NOT_FOUND"
	KindBillAlreadyPaid         Kind = "BILL_ALREADY_PAID"
	KindGoalNotFound            Kind = "GOAL_NOT_FOUND"
	KindGoalClosed              Kind = "GOAL_CLOSED"
	KindLimitExceeded           Kind = "LIMIT_EXCEEDED"
	KindBelowMinimumAmount      Kind = "BELOW_MINIMUM_AMOUNT"
	KindDailyLimitExceeded      Kind = "DAILY_LIMIT_EXCEEDED"
	KindUnsupportedCurrencyPair Kind = "UNSUPPORTED_CURRENCY_PAIR"
	KindRateUnavailable         Kind = "RATE_UNAVAILABLE"
	KindRateLockConflict        Kind = "RATE_LOCK_CONFLICT"
	KindTimeout                 Kind = "TIMEOUT"
	KindInternal                Kind = "INTERNAL"
)

// ErrorCategory groups kinds by how callers are expected to react to them
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryDomainState    ErrorCategory = "domain_state"
	CategoryPolicy         ErrorCategory = "policy"
	CategoryInfrastructure ErrorCategory = "infrastructure"
)

// Category returns the error category for the kind.
func (k Kind) Category() ErrorCategory {
	switch k {
	case KindInvalidAmount, KindInvalidRequest, KindSameAccount, KindSelfTransferRejected,
		KindUnsupportedCurrency, KindUnsupportedCurrencyPair:
		return CategoryValidation
	case KindLimitExceeded, KindBelowMinimumAmount, KindDailyLimitExceeded:
		return CategoryPolicy
	case KindInternal, KindTimeout, KindRateUnavailable, KindRateLockConflict:
		return CategoryInfrastructure
	default:
		return CategoryDomainState
	}
}

// Error is the structured failure returned across the ledger boundary.
// Two errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface by comparing kinds
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates an Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Internal hides an infrastructure failure behind a generic message while
// keeping the cause reachable through errors.Unwrap.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal ledger failure", Err: err}
}

// KindOf extracts the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is checks
var (
	ErrInvalidAmount           = NewError(KindInvalidAmount, "amount must be positive")
	ErrInvalidRequest          = NewError(KindInvalidRequest, "invalid request")
	ErrSameAccount             = NewError(KindSameAccount, "source and destination accounts are the same")
	ErrSelfTransferRejected    = NewError(KindSelfTransferRejected, "destination IBAN belongs to one of your own accounts")
	ErrUnsupportedCurrency     = NewError(KindUnsupportedCurrency, "unsupported currency")
	ErrOwnerNotFound           = NewError(KindOwnerNotFound, "owner not found")
	ErrOwnerExists             = NewError(KindOwnerExists, "owner already exists")
	ErrAccountNotFound         = NewError(KindAccountNotFound, "account not found")
	ErrAccountInactive         = NewError(KindAccountInactive, "account is not active")
	ErrAccountHasBalance       = NewError(KindAccountHasBalance, "account balance must be zero")
	ErrInsufficientFunds       = NewError(KindInsufficientFunds, "insufficient funds")
	ErrCurrencyMismatch        = NewError(KindCurrencyMismatch, "currency mismatch")
	ErrBillNotFound            = NewError(KindBillNotFound, "bill not found")
	ErrBillAlreadyPaid         = NewError(KindBillAlreadyPaid, "bill is already paid")
	ErrGoalNotFound            = NewError(KindGoalNotFound, "savings goal not found")
	ErrGoalClosed              = NewError(KindGoalClosed, "savings goal no longer accepts contributions")
	ErrLimitExceeded           = NewError(KindLimitExceeded, "transfer limit exceeded")
	ErrBelowMinimumAmount      = NewError(KindBelowMinimumAmount, "amount below minimum")
	ErrDailyLimitExceeded      = NewError(KindDailyLimitExceeded, "daily limit exceeded")
	ErrUnsupportedCurrencyPair = NewError(KindUnsupportedCurrencyPair, "unsupported currency pair")
	ErrRateUnavailable         = NewError(KindRateUnavailable, "exchange rate unavailable")
	ErrRateLockConflict        = NewError(KindRateLockConflict, "rate lock held for a different currency pair")
	ErrTimeout                 = NewError(KindTimeout, "operation deadline exceeded before execution")
)
