package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

const (
	// OwnerIDHeader carries the owner id authenticated upstream
	OwnerIDHeader = "X-Owner-ID"

	ownerIDKey = "owner_id"
)

// RequireOwner rejects requests without a well-formed owner id header and
// stores the parsed id on the gin context.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OwnerIDHeader)
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", shared.CategoryValidation, "missing "+OwnerIDHeader+" header")
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, string(shared.KindInvalidRequest), shared.CategoryValidation, "invalid "+OwnerIDHeader+" header")
			return
		}
		c.Set(ownerIDKey, id)
		c.Next()
	}
}

// OwnerIDFrom returns the owner id stored by RequireOwner
func OwnerIDFrom(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ownerIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
