package quota

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type fakeCounter struct {
	count     int64
	incrErr   error
	expireErr error
	expired   []string
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.count++
	return redis.NewIntResult(f.count, nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expired = append(f.expired, key)
	return redis.NewBoolResult(f.expireErr == nil, f.expireErr)
}

func TestRedisGate_Allow(t *testing.T) {
	counter := &fakeCounter{}
	gate := &RedisGate{client: counter, limit: 3}
	ctx := context.Background()

	for want := int64(2); want >= 0; want-- {
		allowed, remaining, err := gate.Allow(ctx, 7)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, want, remaining)
	}

	allowed, remaining, err := gate.Allow(ctx, 7)
	assert.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(0), remaining)

	// Expiry is set on the first increment only.
	assert.Len(t, counter.expired, 1)
}

func TestRedisGate_Allow_ExpireFailureStillDecides(t *testing.T) {
	counter := &fakeCounter{expireErr: errors.New("redis: connection reset")}
	gate := &RedisGate{client: counter, limit: 3}

	allowed, remaining, err := gate.Allow(context.Background(), 7)

	assert.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(2), remaining)
	assert.Len(t, counter.expired, 1)
}

func TestRedisGate_Allow_IncrError(t *testing.T) {
	counter := &fakeCounter{incrErr: errors.New("redis down")}
	gate := &RedisGate{client: counter, limit: 3}

	allowed, _, err := gate.Allow(context.Background(), 7)

	assert.Error(t, err)
	assert.False(t, allowed)
	assert.Empty(t, counter.expired)
}

func TestMonthKey(t *testing.T) {
	at := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "quota:bookings:7:202608", monthKey(7, at))
}
