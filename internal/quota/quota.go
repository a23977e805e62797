package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"shipbooking/config"
)

// counterClient is the redis.Client subset the gate needs.
type counterClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
}

// RedisGate is the monthly booking quota, consumed as a boolean
// "may proceed" decision with a remaining-count hint. It is checked
// before BookingService and never re-checked inside it.
type RedisGate struct {
	client counterClient
	limit  int64
}

func NewRedisGate(cfg config.RedisConfig, limit int64) *RedisGate {
	return &RedisGate{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		limit:  limit,
	}
}

func (g *RedisGate) Allow(ctx context.Context, userID int64) (bool, int64, error) {
	key := monthKey(userID, time.Now())
	n, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		// Key expires well past month end; the key name scopes the window.
		// A failed expiry leaves a stale counter, never a wrong decision.
		if err := g.client.Expire(ctx, key, 32*24*time.Hour).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("set quota key expiry")
		}
	}
	if n > g.limit {
		return false, 0, nil
	}
	return true, g.limit - n, nil
}

func monthKey(userID int64, at time.Time) string {
	return fmt.Sprintf("quota:bookings:%d:%s", userID, at.UTC().Format("200601"))
}
