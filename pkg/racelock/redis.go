package racelock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix    = "race-roster:lock:"
	defaultTTL   = 10 * time.Second
	retryBackoff = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every process using the same Redis instance.
// Locks expire after TTL so a crashed holder cannot block a race forever.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient connects to the Redis server at url and checks it responds
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Lock(ctx context.Context, raceID string) (func(), error) {
	key := keyPrefix + raceID
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock for race %s: %w", raceID, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(raceID, key, token) })
	}, nil
}

func (r *Redis) release(raceID, key, token string) {
	releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
		r.logger.Warn("Failed to release race lock",
			zap.String("race_id", raceID),
			zap.Error(err))
	}
}
