package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
)

func newRedisLedger(t *testing.T) (*RedisSeatLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisSeatLedger(rdb, "test:seats"), mr
}

func TestRedisSeatLedger_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLedger(t)
	s := model.ClassSession{ID: "hiit", Capacity: 2}

	prev, err := l.Sync(ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, prev)

	for i := 0; i < 2; i++ {
		ok, err := l.TryReserve(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.TryReserve(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "2", mr.HGet("test:seats:hiit", "reserved"))

	require.NoError(t, l.Release(ctx, s.ID))
	n, err := l.AvailableSpots(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, l.Release(ctx, s.ID))
	require.NoError(t, l.Release(ctx, s.ID))
	n, _ = l.AvailableSpots(ctx, s.ID)
	assert.Equal(t, 2, n)
}

func TestRedisSeatLedger_UnknownSession(t *testing.T) {
	ctx := context.Background()
	l, _ := newRedisLedger(t)

	_, err := l.TryReserve(ctx, "ghost")
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
	assert.ErrorIs(t, l.Release(ctx, "ghost"), booking.ErrSessionNotFound)
	_, err = l.AvailableSpots(ctx, "ghost")
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
}

func TestRedisSeatLedger_SyncReturnsPrevious(t *testing.T) {
	ctx := context.Background()
	l, _ := newRedisLedger(t)
	s := model.ClassSession{ID: "yoga", Capacity: 5}
	_, err := l.Sync(ctx, s, 4)
	require.NoError(t, err)
	prev, err := l.Sync(ctx, s, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, prev)
	n, _ := l.AvailableSpots(ctx, s.ID)
	assert.Equal(t, 3, n)
}

func TestRedisSeatLedger_ConcurrentLastSeat(t *testing.T) {
	ctx := context.Background()
	l, _ := newRedisLedger(t)
	s := model.ClassSession{ID: "last", Capacity: 1}
	_, err := l.Sync(ctx, s, 0)
	require.NoError(t, err)

	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := l.TryReserve(ctx, s.ID); err == nil && ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
}
