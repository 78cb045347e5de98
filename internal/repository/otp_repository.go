package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPRepo stores outstanding OTP digests in Redis under
// user:{userID}:otp. SET overwrites any previous digest, which is what
// enforces the at-most-one-live-OTP invariant; the TTL handles expiry.
type OTPRepo struct{ RDB *redis.Client }

func NewOTPRepo(rdb *redis.Client) *OTPRepo { return &OTPRepo{RDB: rdb} }

func otpKey(userID uint64) string { return fmt.Sprintf("user:%d:otp", userID) }

// Set writes the HMAC digest with the configured lifetime, replacing any
// prior digest for the user.
func (r *OTPRepo) Set(ctx context.Context, userID uint64, digest string, ttl time.Duration) error {
	return r.RDB.Set(ctx, otpKey(userID), digest, ttl).Err()
}

// Get returns the stored digest, or ErrNotFound when none is live
// (expired, consumed, or never issued); the caller reports that as
// "OTP expired".
func (r *OTPRepo) Get(ctx context.Context, userID uint64) (string, error) {
	digest, err := r.RDB.Get(ctx, otpKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return digest, err
}

// Delete removes the digest, consuming the outstanding code.
func (r *OTPRepo) Delete(ctx context.Context, userID uint64) error {
	return r.RDB.Del(ctx, otpKey(userID)).Err()
}
