// Package ratelimit ограничивает частоту попыток входа.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "yarnshop:rate_limit"

// Limiter решает, разрешена ли очередная попытка для ключа.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Noop разрешает все попытки. Используется, если Redis не настроен.
type Noop struct{}

// Allow всегда разрешает попытку.
func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

type cmdable interface {
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
}

// RedisLimiter считает попытки в фиксированном окне в Redis (INCR + EXPIRE).
type RedisLimiter struct {
	store  cmdable
	limit  int64
	window time.Duration
	logger *zap.Logger
}

// NewRedisLimiter создаёт ограничитель на limit попыток за window.
func NewRedisLimiter(client redis.Cmdable, limit int64, window time.Duration, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		store:  client,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Connect создаёт клиента Redis по URL и проверяет соединение.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Key возвращает ключ счётчика для области scope. Адрес почты в ключ
// попадает только в виде хеша.
func Key(scope string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(scope))))
	return keyPrefix + ":" + hex.EncodeToString(sum[:])
}

// Allow увеличивает счётчик ключа. При недоступности Redis попытка разрешается,
// а ошибка журналируется: вход не должен зависеть от ограничителя.
func (l *RedisLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	key := Key(scope)
	count, err := l.incrWithTTL(ctx, key)
	if err != nil {
		l.logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return true, nil
	}
	return count <= l.limit, nil
}

func (l *RedisLimiter) incrWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.store.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if l.window > 0 && count == 1 {
		if err := l.store.Expire(ctx, key, l.window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
