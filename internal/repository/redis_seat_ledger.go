package repository

import (
    "context"
    "strconv"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/studio-booking/internal/booking"
    "github.com/iliyamo/studio-booking/internal/model"
)

// RedisSeatLedger keeps reserved counters in Redis, one hash per
// session with fields capacity and reserved.  Every mutation runs as a
// Lua script so the capacity check and the increment are atomic.
// Entries are opened by Sync, which the coordinator's reconciliation
// runs at startup and which session creation calls with zero.
type RedisSeatLedger struct {
    rdb    redis.Cmdable
    prefix string
}

// NewRedisSeatLedger returns a ledger storing keys under prefix.
func NewRedisSeatLedger(rdb redis.Cmdable, prefix string) *RedisSeatLedger {
    if prefix == "" {
        prefix = "seats"
    }
    return &RedisSeatLedger{rdb: rdb, prefix: prefix}
}

func (l *RedisSeatLedger) key(sessionID string) string { return l.prefix + ":" + sessionID }

// Return values: -1 unknown session, 0 full, 1 reserved.
var tryReserveScript = redis.NewScript(`
    local cap = redis.call('HGET', KEYS[1], 'capacity')
    if not cap then
        return -1
    end
    local reserved = tonumber(redis.call('HGET', KEYS[1], 'reserved') or '0')
    if reserved >= tonumber(cap) then
        return 0
    end
    redis.call('HINCRBY', KEYS[1], 'reserved', 1)
    return 1
`)

// Return values: -1 unknown session, 1 done.
var releaseScript = redis.NewScript(`
    if redis.call('EXISTS', KEYS[1]) == 0 then
        return -1
    end
    local reserved = tonumber(redis.call('HGET', KEYS[1], 'reserved') or '0')
    if reserved > 0 then
        redis.call('HINCRBY', KEYS[1], 'reserved', -1)
    end
    return 1
`)

// Returns the previous reserved value, 0 for a new entry.
var syncScript = redis.NewScript(`
    local prev = tonumber(redis.call('HGET', KEYS[1], 'reserved') or '0')
    redis.call('HSET', KEYS[1], 'capacity', ARGV[1], 'reserved', ARGV[2])
    return prev
`)

// TryReserve claims a seat iff reserved < capacity.
func (l *RedisSeatLedger) TryReserve(ctx context.Context, sessionID string) (bool, error) {
    n, err := tryReserveScript.Run(ctx, l.rdb, []string{l.key(sessionID)}).Int()
    if err != nil {
        return false, err
    }
    if n < 0 {
        return false, booking.ErrSessionNotFound
    }
    return n == 1, nil
}

// Release gives one seat back, floored at zero.
func (l *RedisSeatLedger) Release(ctx context.Context, sessionID string) error {
    n, err := releaseScript.Run(ctx, l.rdb, []string{l.key(sessionID)}).Int()
    if err != nil {
        return err
    }
    if n < 0 {
        return booking.ErrSessionNotFound
    }
    return nil
}

// AvailableSpots reads capacity - reserved.
func (l *RedisSeatLedger) AvailableSpots(ctx context.Context, sessionID string) (int, error) {
    vals, err := l.rdb.HMGet(ctx, l.key(sessionID), "capacity", "reserved").Result()
    if err != nil {
        return 0, err
    }
    if len(vals) != 2 || vals[0] == nil {
        return 0, booking.ErrSessionNotFound
    }
    capacity := atoiAny(vals[0])
    reserved := atoiAny(vals[1])
    if capacity-reserved < 0 {
        return 0, nil
    }
    return capacity - reserved, nil
}

// Sync writes capacity and reserved, creating the entry if needed.
func (l *RedisSeatLedger) Sync(ctx context.Context, s model.ClassSession, reserved int) (int, error) {
    return syncScript.Run(ctx, l.rdb, []string{l.key(s.ID)}, s.Capacity, reserved).Int()
}

func atoiAny(v any) int {
    s, ok := v.(string)
    if !ok {
        return 0
    }
    n, _ := strconv.Atoi(s)
    return n
}
