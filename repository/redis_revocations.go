package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-token-auth"
)

// DefaultRedisPrefix namespaces revocation keys
const DefaultRedisPrefix = "tokenauth:revoked"

// RedisRevocations is a redis backed auth.RevocationStore. Each record is
// a key that expires together with the token it revokes.
type RedisRevocations struct {
	client redis.UniversalClient
	prefix string
	clock  func() time.Time
}

var _ auth.RevocationStore = (*RedisRevocations)(nil)

func NewRedisRevocations(client redis.UniversalClient, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisRevocations{client: client, prefix: prefix, clock: time.Now}
}

func (r *RedisRevocations) key(tokenID string) string {
	return r.prefix + ":" + tokenID
}

// Revoke implements auth.RevocationStore. SETNX keeps the first record.
func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("token id is required", errors.CategoryBadInput)
	}

	ttl := expiresAt.Sub(r.clock())
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := r.client.SetNX(ctx, r.key(tokenID), expiresAt.Unix(), ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke token").
			WithMetadata(map[string]any{"jti": tokenID})
	}
	return nil
}

// IsRevoked implements auth.RevocationStore.
func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check token revocation")
	}
	return n > 0, nil
}

// Ping checks the connection
func (r *RedisRevocations) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
