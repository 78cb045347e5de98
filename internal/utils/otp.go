package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// OTPDigits is the length of every generated one-time code.
const OTPDigits = 6

// GenerateOTP returns a 6-digit numeric code, zero-padded, drawn from
// crypto/rand. The code is a short-lived, rate-limited secret, not a key.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashOTP returns the keyed HMAC-SHA256 hex digest of a plaintext code.
// Only this digest is ever stored; the plaintext lives solely in the
// verification email.
func HashOTP(secret, otp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(otp))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyOTP recomputes the digest for the supplied code and compares it to
// the stored digest in constant time. A length mismatch (or a stored value
// that is not valid hex) short-circuits to false without comparing
// unequal-length buffers.
func VerifyOTP(secret, storedDigest, otp string) bool {
	stored, err := hex.DecodeString(storedDigest)
	if err != nil {
		return false
	}
	incoming, err := hex.DecodeString(HashOTP(secret, otp))
	if err != nil {
		return false
	}
	if len(stored) != len(incoming) {
		return false
	}
	return subtle.ConstantTimeCompare(stored, incoming) == 1
}
