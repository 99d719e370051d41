package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mvtran/authd/internal/domain"
	apperrors "github.com/mvtran/authd/pkg/errors"
)

const keyPrefix = "refresh_token:"

// createScript inserts a record only if the key does not exist yet, so a
// replayed token hash fails the same way the Postgres unique index does.
// The key expires with the token; a record that is gone reads as unknown,
// which the caller already treats identically to expired.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "user_id", ARGV[1], "expires_at", ARGV[2], "created_at", ARGV[3], "revoked", "0")
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`)

// revokeScript flips revoked from 0 to 1 atomically and reports whether
// this call made the transition. Returns 0 for missing or already-revoked
// records: that is the compare-and-set rotation depends on.
var revokeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
	return 0
end
redis.call("HSET", KEYS[1], "revoked", "1", "revoked_at", ARGV[1])
return 1
`)

// RefreshTokenRepository implements repository.RefreshTokenRepository using
// Redis, one hash per token keyed by the token's SHA-256 digest.
type RefreshTokenRepository struct {
	client *redis.Client
}

// NewRefreshTokenRepository creates a Redis-backed refresh token repository.
func NewRefreshTokenRepository(client *redis.Client) *RefreshTokenRepository {
	return &RefreshTokenRepository{client: client}
}

// Create persists a new refresh-token record with a TTL matching its expiry.
func (r *RefreshTokenRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	created, err := createScript.Run(ctx, r.client,
		[]string{keyPrefix + tokenHash},
		userID,
		strconv.FormatInt(expiresAt.UnixMilli(), 10),
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(ttl.Milliseconds(), 10),
	).Int()
	if err != nil {
		return fmt.Errorf("redis create refresh token: %w", err)
	}
	if created == 0 {
		return apperrors.AlreadyExists("refresh token", "hash", tokenHash)
	}

	return nil
}

// GetByHash retrieves a refresh-token record by its hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, keyPrefix+tokenHash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get refresh token: %w", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrNotFound
	}

	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("parse refresh token expires_at: %w", err)
	}
	createdAt, err := parseMillis(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse refresh token created_at: %w", err)
	}

	rt := &domain.RefreshToken{
		ID:        tokenHash,
		UserID:    fields["user_id"],
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}

	if fields["revoked"] == "1" {
		revokedAt, err := parseMillis(fields["revoked_at"])
		if err != nil {
			return nil, fmt.Errorf("parse refresh token revoked_at: %w", err)
		}
		rt.RevokedAt = &revokedAt
	}

	return rt, nil
}

// Revoke marks the record revoked; unknown hashes are a silent no-op.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	if _, err := r.revoke(ctx, tokenHash); err != nil {
		return err
	}
	return nil
}

// RevokeIfActive conditionally revokes the record and reports whether this
// call made the transition.
func (r *RefreshTokenRepository) RevokeIfActive(ctx context.Context, tokenHash string) (bool, error) {
	return r.revoke(ctx, tokenHash)
}

func (r *RefreshTokenRepository) revoke(ctx context.Context, tokenHash string) (bool, error) {
	now := time.Now().UTC()

	revoked, err := revokeScript.Run(ctx, r.client,
		[]string{keyPrefix + tokenHash},
		strconv.FormatInt(now.UnixMilli(), 10),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis revoke refresh token: %w", err)
	}

	return revoked == 1, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
