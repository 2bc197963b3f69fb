package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"legaldoc-backend/internal/shared/telemetry"
)

const (
	defaultRedisTTL  = 2 * time.Minute
	redisPollBackoff = 50 * time.Millisecond
	redisKeyPrefix   = "legaldoc:lock:"
)

// releaseScript deletes the key only when it still holds the caller's token, so an
// expired holder cannot release a lock that has since been taken by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a Locker shared across processes through Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker builds a Redis-backed locker. ttl bounds how long a crashed holder
// keeps the key; wait bounds how long Acquire polls before giving up.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

// NewRedisClient builds a go-redis client for the given address.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// Acquire polls SET NX until the key is obtained, the wait budget elapses, or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := newToken()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, fmt.Errorf("%w: key=%s: %w", ErrContended, key, waitCtx.Err())
			}
			return nil, fmt.Errorf("redis lock key=%s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-time.After(redisPollBackoff):
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: key=%s: %w", ErrContended, key, waitCtx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled; release must still run.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				// The TTL reclaims the key eventually.
				telemetry.Warn("lock.release_failed", map[string]any{
					"key":   key,
					"error": err.Error(),
				})
			}
		})
	}, nil
}

// Ping checks connectivity, used by the health endpoint.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func newToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

var _ Locker = (*RedisLocker)(nil)
