package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type ownerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// OwnerRateLimiter hands out one token bucket per owner, falling back to the
// client IP for requests without a valid owner header.
type OwnerRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ownerLimiter
	rps      rate.Limit
	burst    int
	now      func() time.Time
}

func NewOwnerRateLimiter(rps float64, burst int) *OwnerRateLimiter {
	return &OwnerRateLimiter{
		limiters: make(map[string]*ownerLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether key may make a request now.
func (l *OwnerRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &ownerLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	l.evictIdle(now)
	return entry.limiter.AllowN(now, 1)
}

// evictIdle drops buckets that have been idle long enough to be full again.
func (l *OwnerRateLimiter) evictIdle(now time.Time) {
	if len(l.limiters) < 1024 {
		return
	}
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.limiters, k)
		}
	}
}

// Middleware responds 429 once a caller exhausts its bucket. A non-positive
// rate disables limiting.
func (l *OwnerRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.rps <= 0 {
			c.Next()
			return
		}
		if !l.Allow(limiterKey(c)) {
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", shared.CategoryPolicy, "too many requests")
			return
		}
		c.Next()
	}
}

// limiterKey buckets by canonical owner ID. Headers that do not parse share
// the caller's IP bucket so rotating garbage values cannot mint fresh buckets.
func limiterKey(c *gin.Context) string {
	if id, err := uuid.Parse(c.GetHeader(OwnerIDHeader)); err == nil {
		return "owner:" + id.String()
	}
	return "ip:" + c.ClientIP()
}
