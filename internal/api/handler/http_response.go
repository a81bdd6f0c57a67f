package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api/middleware"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code     string `json:"code"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, string(shared.KindInvalidRequest), message)
}

// RespondLedgerError maps a ledger failure onto a status code. Internal
// failures never leak their cause to the client.
func RespondLedgerError(c *gin.Context, err error) {
	var ledgerErr *shared.Error
	if !errors.As(err, &ledgerErr) {
		ledgerErr = shared.Internal(err)
	}
	message := ledgerErr.Error()
	if ledgerErr.Kind == shared.KindInternal {
		message = "An internal server error occurred"
	}

	c.JSON(StatusFor(ledgerErr.Kind), &Response{
		Error: &ErrorInfo{
			Code:     string(ledgerErr.Kind),
			Category: string(ledgerErr.Kind.Category()),
			Message:  message,
		},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// StatusFor returns the HTTP status for an error kind
func StatusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindOwnerNotFound, shared.KindAccountNotFound, shared.KindBillNotFound, shared.KindGoalNotFound:
		return http.StatusNotFound
	case shared.KindOwnerExists, shared.KindAccountInactive, shared.KindAccountHasBalance,
		shared.KindBillAlreadyPaid, shared.KindGoalClosed, shared.KindRateLockConflict:
		return http.StatusConflict
	case shared.KindInsufficientFunds, shared.KindCurrencyMismatch:
		return http.StatusUnprocessableEntity
	case shared.KindTimeout:
		return http.StatusGatewayTimeout
	case shared.KindRateUnavailable:
		return http.StatusServiceUnavailable
	}

	switch kind.Category() {
	case shared.CategoryValidation:
		return http.StatusBadRequest
	case shared.CategoryPolicy:
		return http.StatusUnprocessableEntity
	case shared.CategoryDomainState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
