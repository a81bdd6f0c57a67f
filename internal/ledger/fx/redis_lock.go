package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const redisLockPrefix = "ledger:ratelock:"

// RedisRateLock shares rate locks between API replicas. Redis expiry does the reaping.
type RedisRateLock struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisRateLock(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisRateLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisRateLock{client: client, ttl: ttl, logger: logger}
}

func (r *RedisRateLock) Acquire(ctx context.Context, operationID string, pair Pair) (*Lock, error) {
	if operationID == "" {
		return nil, shared.Errorf(shared.KindInvalidRequest, "operation id is required to lock a rate")
	}
	key := redisLockPrefix + operationID
	l := &Lock{OperationID: operationID, Pair: pair, ExpiresAt: time.Now().Add(r.ttl)}
	payload, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rate lock: %w", err)
	}

	ok, err := r.client.SetNX(ctx, key, payload, r.ttl).Result()
	if err != nil {
		r.logger.Error("Failed to acquire rate lock", "operation_id", operationID, "pair", pair.String(), "error", err)
		return nil, fmt.Errorf("failed to acquire rate lock: %w", err)
	}
	if ok {
		return l, nil
	}

	existing, err := r.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// Expired between SETNX and GET
		return r.Acquire(ctx, operationID, pair)
	}
	if existing.Pair != pair {
		return nil, shared.Errorf(shared.KindRateLockConflict,
			"operation %s already holds a lock on %s", operationID, existing.Pair)
	}
	return existing, nil
}

// pinScript stores ARGV[1] as the lock's rate unless one is already set and
// returns the stored rate, in one step so replicas cannot pin different quotes.
var pinScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return false
end
local lock = cjson.decode(raw)
if lock.rate == nil then
  lock.rate = ARGV[1]
  redis.call('SET', KEYS[1], cjson.encode(lock), 'KEEPTTL')
end
return lock.rate
`)

func (r *RedisRateLock) Pin(ctx context.Context, operationID string, rate decimal.Decimal) (decimal.Decimal, error) {
	stored, err := pinScript.Run(ctx, r.client, []string{redisLockPrefix + operationID}, rate.String()).Text()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, shared.Errorf(shared.KindRateUnavailable, "rate lock for operation %s expired or was never acquired", operationID)
	}
	if err != nil {
		r.logger.Error("Failed to pin locked rate", "operation_id", operationID, "error", err)
		return decimal.Zero, fmt.Errorf("failed to pin locked rate: %w", err)
	}
	pinned, err := decimal.NewFromString(stored)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode pinned rate %q: %w", stored, err)
	}
	return pinned, nil
}

func (r *RedisRateLock) Release(ctx context.Context, operationID string) error {
	if err := r.client.Del(ctx, redisLockPrefix+operationID).Err(); err != nil {
		r.logger.Error("Failed to release rate lock", "operation_id", operationID, "error", err)
		return fmt.Errorf("failed to release rate lock: %w", err)
	}
	return nil
}

func (r *RedisRateLock) get(ctx context.Context, key string) (*Lock, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rate lock: %w", err)
	}
	var l Lock
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("failed to decode rate lock: %w", err)
	}
	return &l, nil
}
