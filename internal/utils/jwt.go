package utils

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bagvault/api/internal/model"
)

// Token lifetimes. User access tokens stretch when the client asked to be
// remembered; admin access tokens are deliberately short regardless.
const (
	OTPPageTokenTTL      = 24 * time.Hour
	AccessTokenTTL       = 72 * time.Hour
	AccessRememberedTTL  = 30 * 24 * time.Hour
	AdminAccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL      = 7 * 24 * time.Hour
	RefreshRememberedTTL = 30 * 24 * time.Hour
)

// ErrNilClaims is returned when a caller tries to sign a nil claims value.
// That is a programming error, distinct from an invalid token at verify
// time which is an expected runtime condition.
var ErrNilClaims = errors.New("token claims must not be nil")

// TokenClaims is the claim shape shared by all three token classes.
type TokenClaims struct {
	Role          model.Role          `json:"role"`
	IsVerified    bool                `json:"isVerified"`
	AccountStatus model.AccountStatus `json:"accountStatus"`
	RememberMe    bool                `json:"rememberMe,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a user id. Returns 0 when the
// subject is absent or malformed.
func (c *TokenClaims) UserID() uint64 {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// NewTokenClaims builds the claim set for a user without expiry; the
// issuer stamps exp/iat according to the token class being signed.
func NewTokenClaims(u model.User, rememberMe bool) *TokenClaims {
	return &TokenClaims{
		Role:          u.Role,
		IsVerified:    u.IsVerified,
		AccountStatus: u.AccountStatus,
		RememberMe:    rememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatUint(u.ID, 10),
		},
	}
}

// TokenIssuer signs and verifies the three token classes. Each class has
// its own secret so that a token minted for one purpose can never verify
// as another.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	otpPageSecret []byte
}

func NewTokenIssuer(accessSecret, refreshSecret, otpPageSecret string) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		otpPageSecret: []byte(otpPageSecret),
	}
}

// IssueOTPPageToken signs a token scoped to the OTP verification and
// recovery pages. Fixed one-day validity.
func (t *TokenIssuer) IssueOTPPageToken(claims *TokenClaims) (string, error) {
	return t.sign(claims, t.otpPageSecret, OTPPageTokenTTL)
}

// IssueAccessToken signs an ordinary API access token. Remember-me
// stretches the validity from three days to thirty.
func (t *TokenIssuer) IssueAccessToken(claims *TokenClaims) (string, error) {
	ttl := AccessTokenTTL
	if claims != nil && claims.RememberMe {
		ttl = AccessRememberedTTL
	}
	return t.sign(claims, t.accessSecret, ttl)
}

// IssueAdminAccessToken signs an access token for the admin browser
// session. Always 15 minutes; admin sessions stay alive via refresh.
func (t *TokenIssuer) IssueAdminAccessToken(claims *TokenClaims) (string, error) {
	return t.sign(claims, t.accessSecret, AdminAccessTokenTTL)
}

// IssueRefreshToken signs a refresh token with its own secret. Used only
// by the admin flow to mint new access tokens.
func (t *TokenIssuer) IssueRefreshToken(claims *TokenClaims) (string, error) {
	ttl := RefreshTokenTTL
	if claims != nil && claims.RememberMe {
		ttl = RefreshRememberedTTL
	}
	return t.sign(claims, t.refreshSecret, ttl)
}

func (t *TokenIssuer) sign(claims *TokenClaims, secret []byte, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", ErrNilClaims
	}
	now := time.Now().UTC()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccessToken checks signature and expiry against the access secret.
func (t *TokenIssuer) VerifyAccessToken(token string) (*TokenClaims, error) {
	return t.verify(token, t.accessSecret)
}

// VerifyRefreshToken checks signature and expiry against the refresh secret.
func (t *TokenIssuer) VerifyRefreshToken(token string) (*TokenClaims, error) {
	return t.verify(token, t.refreshSecret)
}

// VerifyOTPPageToken checks signature and expiry against the OTP-page secret.
func (t *TokenIssuer) VerifyOTPPageToken(token string) (*TokenClaims, error) {
	return t.verify(token, t.otpPageSecret)
}

func (t *TokenIssuer) verify(token string, secret []byte) (*TokenClaims, error) {
	var claims TokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		if err == nil {
			err = jwt.ErrTokenUnverifiable
		}
		return nil, err
	}
	return &claims, nil
}

// ExtractBearer reads the Authorization header and returns the raw token.
// Anything other than an exact two-part "Bearer <token>" value yields "".
func ExtractBearer(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return ""
	}
	return parts[1]
}
