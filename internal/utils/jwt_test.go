package utils

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagvault/api/internal/model"
)

func testUser() model.User {
	return model.User{
		ID:            42,
		Role:          model.RoleUser,
		IsVerified:    true,
		AccountStatus: model.StatusActive,
	}
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	issuer := NewTokenIssuer("access", "refresh", "otp-page")

	tok, err := issuer.IssueAccessToken(NewTokenClaims(testUser(), false))
	require.NoError(t, err)

	claims, err := issuer.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID())
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.True(t, claims.IsVerified)
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestRememberMeStretchesLifetimes(t *testing.T) {
	issuer := NewTokenIssuer("access", "refresh", "otp-page")

	access, err := issuer.IssueAccessToken(NewTokenClaims(testUser(), true))
	require.NoError(t, err)
	claims, err := issuer.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(AccessRememberedTTL), claims.ExpiresAt.Time, time.Minute)

	refresh, err := issuer.IssueRefreshToken(NewTokenClaims(testUser(), true))
	require.NoError(t, err)
	rc, err := issuer.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(RefreshRememberedTTL), rc.ExpiresAt.Time, time.Minute)
}

func TestAdminAccessTokenIsShortRegardless(t *testing.T) {
	issuer := NewTokenIssuer("access", "refresh", "otp-page")

	admin := testUser()
	admin.Role = model.RoleAdmin
	tok, err := issuer.IssueAdminAccessToken(NewTokenClaims(admin, true))
	require.NoError(t, err)

	claims, err := issuer.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(AdminAccessTokenTTL), claims.ExpiresAt.Time, time.Minute)
}

// A token signed for one class must never verify as another, even with
// identical claims inside.
func TestTokenClassesDoNotCross(t *testing.T) {
	issuer := NewTokenIssuer("access", "refresh", "otp-page")
	claims := NewTokenClaims(testUser(), false)

	page, err := issuer.IssueOTPPageToken(claims)
	require.NoError(t, err)
	_, err = issuer.VerifyAccessToken(page)
	assert.Error(t, err)
	_, err = issuer.VerifyRefreshToken(page)
	assert.Error(t, err)

	access, err := issuer.IssueAccessToken(NewTokenClaims(testUser(), false))
	require.NoError(t, err)
	_, err = issuer.VerifyOTPPageToken(access)
	assert.Error(t, err)
}

func TestVerifyRejectsForgedToken(t *testing.T) {
	issuer := NewTokenIssuer("access", "refresh", "otp-page")
	other := NewTokenIssuer("different", "refresh", "otp-page")

	tok, err := other.IssueAccessToken(NewTokenClaims(testUser(), false))
	require.NoError(t, err)

	_, err = issuer.VerifyAccessToken(tok)
	assert.Error(t, err)

	_, err = issuer.VerifyAccessToken("not.a.jwt")
	assert.Error(t, err)
}

func TestSignNilClaims(t *testing.T) {
	issuer := NewTokenIssuer("access", "refresh", "otp-page")
	_, err := issuer.IssueAccessToken(nil)
	assert.ErrorIs(t, err, ErrNilClaims)
}

func TestExtractBearer(t *testing.T) {
	mk := func(v string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if v != "" {
			r.Header.Set("Authorization", v)
		}
		return r
	}

	assert.Equal(t, "abc", ExtractBearer(mk("Bearer abc")))
	assert.Equal(t, "", ExtractBearer(mk("")))
	assert.Equal(t, "", ExtractBearer(mk("Bearer")))
	assert.Equal(t, "", ExtractBearer(mk("Bearer ")))
	assert.Equal(t, "", ExtractBearer(mk("Basic abc")))
	assert.Equal(t, "", ExtractBearer(mk("Bearer a b")))
}
