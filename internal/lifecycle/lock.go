package lifecycle

import (
	"context"
	"errors"
	"time"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "franchise:transition:"

// Locker serializes transitions on one applicant.
type Locker interface {
	Acquire(ctx context.Context, email string) (release func(), err error)
}

// NopLocker is used when Redis is not configured; concurrent transitions
// on one email then resolve as last write wins.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another caller is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisLocker struct {
	client   *redis.Client
	ttl      time.Duration
	logger   logger.Logger
	newToken func() string
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, logger: log, newToken: uuid.NewString}
}

func (l *RedisLocker) Acquire(ctx context.Context, email string) (func(), error) {
	key := lockPrefix + email
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, apperrors.NewStoreFaultError("acquire transition lock", err)
	}
	if !ok {
		l.logger.Warn("transition lock busy", map[string]interface{}{"email": email})
		return nil, apperrors.NewTransitionInProgressError(email)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("transition lock release failed", map[string]interface{}{"email": email, "error": err})
		}
	}, nil
}
