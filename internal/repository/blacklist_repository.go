package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlacklistRepo is the server-side token denylist, keyed by the raw token
// string under blacklist:jwt:{token}. Entries carry a TTL equal to the
// token's remaining lifetime, so a revoked token never outlives its entry
// and the set cannot accumulate forever-lived garbage.
type BlacklistRepo struct{ RDB *redis.Client }

func NewBlacklistRepo(rdb *redis.Client) *BlacklistRepo { return &BlacklistRepo{RDB: rdb} }

func blacklistKey(token string) string { return "blacklist:jwt:" + token }

// Add revokes a token for the rest of its life. Tokens already at or past
// expiry are skipped; natural expiry makes the entry pointless.
func (r *BlacklistRepo) Add(ctx context.Context, token string, expiresAt time.Time) error {
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return nil
	}
	return r.RDB.Set(ctx, blacklistKey(token), token, remaining).Err()
}

// Contains reports whether the raw token has been revoked. This check runs
// before signature verification on every authenticated request (cheap
// rejection path, and revocation must beat an otherwise-valid token).
func (r *BlacklistRepo) Contains(ctx context.Context, token string) (bool, error) {
	n, err := r.RDB.Exists(ctx, blacklistKey(token)).Result()
	return n > 0, err
}
