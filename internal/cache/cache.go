// cache — быстрый слой проверки отзыва refresh-токенов поверх Redis.
//
// Кэш не является источником истины: запись появляется только после
// успешной фиксации в журнале хранилища, а промах означает "спросить хранилище".
package cache

//go:generate mockgen -source=cache.go -destination=../../mocks/mock_cache.go -package=mocks

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
)

// RevocationCache — минимальный контракт кэша отозванных jti.
type RevocationCache interface {
	// MarkRevoked запоминает jti до истечения самого токена.
	MarkRevoked(ctx context.Context, entry *models.RevocationEntry) error
	// IsRevoked возвращает true, только если jti точно отозван.
	IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error)
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "catalog:revoked:".
func NewRedisCache(redisURL, prefix string) (RevocationCache, error) {
	if prefix == "" {
		prefix = "catalog:revoked:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix, now: time.Now}, nil
}

func (c *redisCache) key(id uuid.UUID) string { return c.prefix + id.String() }

// Храним как Redis Hash с полями: uid, exp (unix); TTL ключа = остаток жизни токена.
func (c *redisCache) MarkRevoked(ctx context.Context, e *models.RevocationEntry) error {
	ttl := e.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		// Токен уже истёк: проверка подписи отклонит его раньше кэша.
		return nil
	}

	kv := map[string]string{
		"uid": e.UserID.String(),
		"exp": strconv.FormatInt(e.ExpiresAt.Unix(), 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(e.TokenID), kv)
	pipe.Expire(ctx, c.key(e.TokenID), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) IsRevoked(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (c *redisCache) Close() error { return c.rdb.Close() }
