package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/api/middleware"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ownerID reads the id stored by middleware.RequireOwner
func ownerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.OwnerIDFrom(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+middleware.OwnerIDHeader+" header")
	}
	return id, ok
}

// pathID parses a uuid path parameter, responding 400 when it is malformed
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondBadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parseAmount accepts a decimal string. Sign checks are left to the ledger.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, shared.Errorf(shared.KindInvalidAmount, "invalid amount %q", s)
	}
	return d, nil
}

// parseOptionalAmount treats an empty string as zero
func parseOptionalAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return parseAmount(s)
}

// parseDate accepts a calendar date in loc or an RFC 3339 timestamp
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, shared.Errorf(shared.KindInvalidRequest, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func mustUUID(s string) uuid.UUID {
	// Inputs are validated by the binding tags before this is called.
	return uuid.MustParse(s)
}
