package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"transit-booking/internal/domain/inventory"
	"transit-booking/internal/infra"
	"transit-booking/internal/pkg/clock"
	"transit-booking/internal/usecase/shared"

	"github.com/redis/go-redis/v9"
)

// Script return codes shared by the Lua scripts below.
const (
	codeOK           = 1
	codeRejected     = 0
	codeHoldNotFound = -1
	codeHoldExpired  = -2
	codeInvariant    = -3
)

// KEYS: inventory hash, hold hash, expiry zset
// ARGV: capacity, seats, hold id, expires_at ms
var reserveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	redis.call('HSET', KEYS[1], 'capacity', ARGV[1], 'held', 0, 'committed', 0)
end
local state = redis.call('HMGET', KEYS[1], 'capacity', 'held', 'committed')
local capacity = tonumber(state[1])
local held = tonumber(state[2])
local committed = tonumber(state[3])
local seats = tonumber(ARGV[2])
if held + committed + seats > capacity then
	return 0
end
redis.call('HINCRBY', KEYS[1], 'held', seats)
redis.call('HSET', KEYS[2], 'inv', KEYS[1], 'seats', seats, 'expires_at', ARGV[4])
redis.call('ZADD', KEYS[3], ARGV[4], ARGV[3])
return 1
`)

// KEYS: inventory hash, hold hash, expiry zset
// ARGV: hold id, now ms
var commitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 0 then
	return -1
end
local seats = tonumber(redis.call('HGET', KEYS[2], 'seats'))
local expires_at = tonumber(redis.call('HGET', KEYS[2], 'expires_at'))
local held = tonumber(redis.call('HGET', KEYS[1], 'held') or '0')
if held < seats then
	return -3
end
redis.call('DEL', KEYS[2])
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('HINCRBY', KEYS[1], 'held', -seats)
if expires_at <= tonumber(ARGV[2]) then
	return -2
end
redis.call('HINCRBY', KEYS[1], 'committed', seats)
return 1
`)

// KEYS: inventory hash, hold hash, expiry zset
// ARGV: hold id
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 0 then
	return 0
end
local seats = tonumber(redis.call('HGET', KEYS[2], 'seats'))
local held = tonumber(redis.call('HGET', KEYS[1], 'held') or '0')
if held < seats then
	return -3
end
redis.call('DEL', KEYS[2])
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('HINCRBY', KEYS[1], 'held', -seats)
return 1
`)

// KEYS: inventory hash
// ARGV: seats
var releaseCommittedScript = redis.NewScript(`
local committed = tonumber(redis.call('HGET', KEYS[1], 'committed') or '0')
local seats = tonumber(ARGV[1])
if committed < seats then
	return -3
end
redis.call('HINCRBY', KEYS[1], 'committed', -seats)
return 1
`)

// KEYS: inventory hash, hold hash, expiry zset
// ARGV: hold id, now ms
var expireScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 0 then
	redis.call('ZREM', KEYS[3], ARGV[1])
	return 0
end
local hold = redis.call('HMGET', KEYS[2], 'seats', 'expires_at')
if tonumber(hold[2]) > tonumber(ARGV[2]) then
	return 0
end
local seats = tonumber(hold[1])
local held = tonumber(redis.call('HGET', KEYS[1], 'held') or '0')
redis.call('DEL', KEYS[2])
redis.call('ZREM', KEYS[3], ARGV[1])
if held < seats then
	return -3
end
redis.call('HINCRBY', KEYS[1], 'held', -seats)
return 1
`)

const sweepBatchSize = 500

// RedisLedger keeps each (offering, class) counter in one hash and mutates it
// only from Lua scripts, which Redis runs atomically. Every key shares the
// {prefix} hash tag so a script's keys live in one cluster slot.
type RedisLedger struct {
	rdb      redis.UniversalClient
	prefix   string
	capacity shared.CapacityLookup
	clock    clock.Clock
	ttl      time.Duration
	logger   *slog.Logger
}

func NewRedisLedger(
	rdb redis.UniversalClient,
	prefix string,
	capacity shared.CapacityLookup,
	clk clock.Clock,
	ttl time.Duration,
	logger *slog.Logger,
) *RedisLedger {
	if ttl <= 0 {
		ttl = inventory.DefaultHoldTTL
	}
	return &RedisLedger{rdb: rdb, prefix: prefix, capacity: capacity, clock: clk, ttl: ttl, logger: logger}
}

var _ shared.InventoryLedger = (*RedisLedger)(nil)

func (l *RedisLedger) namespace() string {
	return "{" + l.prefix + "}"
}

func (l *RedisLedger) inventoryKey(key inventory.Key) string {
	return l.namespace() + ":inv:" + key.String()
}

func (l *RedisLedger) holdKey(id string) string {
	return l.namespace() + ":hold:" + id
}

func (l *RedisLedger) expiryKey() string {
	return l.namespace() + ":holds:expiry"
}

func (l *RedisLedger) Reserve(ctx context.Context, key inventory.Key, seats int) (inventory.Hold, error) {
	hold, err := inventory.NewHold(key, seats, l.clock.Now(), l.ttl)
	if err != nil {
		return inventory.Hold{}, err
	}
	capacity, err := l.capacity.Capacity(ctx, key)
	if err != nil {
		return inventory.Hold{}, inventory.ErrUnknownInventory
	}

	keys := []string{l.inventoryKey(key), l.holdKey(hold.ID.String()), l.expiryKey()}
	code, err := reserveScript.Run(ctx, l.rdb, keys, capacity, seats, hold.ID.String(), hold.ExpiresAt.UnixMilli()).Int64()
	if err != nil {
		return inventory.Hold{}, infra.WrapRepoErr("failed to run reserve script", err)
	}
	if code == codeRejected {
		return inventory.Hold{}, inventory.ErrInsufficientCapacity
	}
	return hold, nil
}

func (l *RedisLedger) Commit(ctx context.Context, hold inventory.Hold) error {
	now := l.clock.Now()
	keys := []string{l.inventoryKey(hold.Key), l.holdKey(hold.ID.String()), l.expiryKey()}
	code, err := commitScript.Run(ctx, l.rdb, keys, hold.ID.String(), now.UnixMilli()).Int64()
	if err != nil {
		return infra.WrapRepoErr("failed to run commit script", err)
	}

	switch code {
	case codeOK:
		return nil
	case codeHoldExpired:
		return inventory.ErrHoldExpired
	case codeHoldNotFound:
		if hold.ExpiredAt(now) {
			return inventory.ErrHoldExpired
		}
		return inventory.ErrHoldNotFound
	default:
		return l.violation("commit", hold.Key, code)
	}
}

func (l *RedisLedger) Release(ctx context.Context, hold inventory.Hold) error {
	keys := []string{l.inventoryKey(hold.Key), l.holdKey(hold.ID.String()), l.expiryKey()}
	code, err := releaseScript.Run(ctx, l.rdb, keys, hold.ID.String()).Int64()
	if err != nil {
		return infra.WrapRepoErr("failed to run release script", err)
	}
	if code == codeInvariant {
		return l.violation("release", hold.Key, code)
	}
	return nil
}

func (l *RedisLedger) ReleaseCommitted(ctx context.Context, key inventory.Key, seats int) error {
	if seats <= 0 {
		return inventory.ErrInvalidSeatCount
	}
	code, err := releaseCommittedScript.Run(ctx, l.rdb, []string{l.inventoryKey(key)}, seats).Int64()
	if err != nil {
		return infra.WrapRepoErr("failed to run release committed script", err)
	}
	if code != codeOK {
		return l.violation("release committed", key, code)
	}
	return nil
}

func (l *RedisLedger) State(ctx context.Context, key inventory.Key) (inventory.State, error) {
	vals, err := l.rdb.HMGet(ctx, l.inventoryKey(key), "capacity", "held", "committed").Result()
	if err != nil {
		return inventory.State{}, infra.WrapRepoErr("failed to read inventory state", err)
	}
	if vals[0] == nil {
		capacity, err := l.capacity.Capacity(ctx, key)
		if err != nil {
			return inventory.State{}, inventory.ErrUnknownInventory
		}
		return inventory.State{Capacity: capacity}, nil
	}
	return inventory.State{
		Capacity:  atoi(vals[0]),
		Held:      atoi(vals[1]),
		Committed: atoi(vals[2]),
	}, nil
}

// SweepExpired releases lapsed holds one script call at a time, so each call
// only touches the keys it declares.
func (l *RedisLedger) SweepExpired(ctx context.Context) (int, error) {
	now := l.clock.Now().UnixMilli()
	released := 0
	for {
		ids, err := l.rdb.ZRangeArgs(ctx, redis.ZRangeArgs{
			Key:     l.expiryKey(),
			ByScore: true,
			Start:   "-inf",
			Stop:    strconv.FormatInt(now, 10),
			Count:   sweepBatchSize,
		}).Result()
		if err != nil {
			return released, infra.WrapRepoErr("failed to list expired holds", err)
		}

		removed := 0
		for _, id := range ids {
			invKey, err := l.rdb.HGet(ctx, l.holdKey(id), "inv").Result()
			if errors.Is(err, redis.Nil) {
				// released or committed since the range was read
				if err := l.rdb.ZRem(ctx, l.expiryKey(), id).Err(); err != nil {
					return released, infra.WrapRepoErr("failed to drop stale expiry entry", err)
				}
				removed++
				continue
			}
			if err != nil {
				return released, infra.WrapRepoErr("failed to read hold", err)
			}

			code, err := expireScript.Run(ctx, l.rdb, []string{invKey, l.holdKey(id), l.expiryKey()}, id, now).Int64()
			if err != nil {
				return released, infra.WrapRepoErr("failed to run expire script", err)
			}
			switch code {
			case codeOK:
				released++
				removed++
			case codeInvariant:
				removed++
				l.logger.Error("inventory invariant violated", "op", "sweep", "inventory", invKey, "hold_id", id, "code", code)
			}
		}

		if len(ids) < sweepBatchSize || removed == 0 {
			return released, nil
		}
	}
}

func (l *RedisLedger) violation(op string, key inventory.Key, code int64) error {
	l.logger.Error("inventory invariant violated", "op", op, "key", key.String(), "code", code)
	return inventory.ErrInvariantViolated
}

func atoi(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
