package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagvault/api/internal/model"
	"github.com/bagvault/api/internal/repository"
	"github.com/bagvault/api/internal/utils"
)

type fakeUsers map[uint64]model.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func newTestSession(t *testing.T) (*Session, *utils.TokenIssuer, *repository.BlacklistRepo, fakeUsers) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	issuer := utils.NewTokenIssuer("access", "refresh", "otp-page")
	blacklist := repository.NewBlacklistRepo(rdb)
	users := fakeUsers{}
	return NewSession(issuer, blacklist, users), issuer, blacklist, users
}

func runMiddleware(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context, bool) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	nextCalled := false
	_ = mw(func(c echo.Context) error {
		nextCalled = true
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, c, nextCalled
}

func bearerReq(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func activeUser(id uint64) model.User {
	return model.User{ID: id, Role: model.RoleUser, IsVerified: true, AccountStatus: model.StatusActive}
}

func TestRequireAccessTokenMissing(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	rec, _, next := runMiddleware(s.RequireAccessToken(), bearerReq(""))

	assert.False(t, next)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), string(model.ErrTypeTokenInvalid))
}

func TestRequireAccessTokenGarbage(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	rec, _, next := runMiddleware(s.RequireAccessToken(), bearerReq("definitely.not.a.token"))

	assert.False(t, next)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), string(model.ErrTypeTokenInvalid))
}

func TestRequireAccessTokenValid(t *testing.T) {
	s, issuer, _, _ := newTestSession(t)
	tok, err := issuer.IssueAccessToken(utils.NewTokenClaims(activeUser(5), false))
	require.NoError(t, err)

	rec, c, next := runMiddleware(s.RequireAccessToken(), bearerReq(tok))

	assert.True(t, next)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, Claims(c))
	assert.Equal(t, uint64(5), Claims(c).UserID())
	assert.Equal(t, tok, RawToken(c))
}

// Revocation must win even for a token that would still verify.
func TestRequireAccessTokenRevoked(t *testing.T) {
	s, issuer, blacklist, _ := newTestSession(t)
	tok, err := issuer.IssueAccessToken(utils.NewTokenClaims(activeUser(5), false))
	require.NoError(t, err)
	require.NoError(t, blacklist.Add(context.Background(), tok, time.Now().Add(time.Hour)))

	rec, _, next := runMiddleware(s.RequireAccessToken(), bearerReq(tok))

	assert.False(t, next)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), string(model.ErrTypeTokenBlacklisted))
}

// The blacklist is consulted before signature verification, so even an
// unverifiable blacklisted string reports as revoked.
func TestBlacklistCheckedBeforeVerification(t *testing.T) {
	s, _, blacklist, _ := newTestSession(t)
	require.NoError(t, blacklist.Add(context.Background(), "junk-token", time.Now().Add(time.Hour)))

	rec, _, next := runMiddleware(s.RequireAccessToken(), bearerReq("junk-token"))

	assert.False(t, next)
	assert.Contains(t, rec.Body.String(), string(model.ErrTypeTokenBlacklisted))
}

func TestTokenClassSeparation(t *testing.T) {
	s, issuer, _, _ := newTestSession(t)
	page, err := issuer.IssueOTPPageToken(utils.NewTokenClaims(activeUser(5), false))
	require.NoError(t, err)

	// An OTP-page token must not open API routes.
	rec, _, next := runMiddleware(s.RequireAccessToken(), bearerReq(page))
	assert.False(t, next)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// But it does open the OTP routes.
	_, _, next = runMiddleware(s.RequireOTPPageToken(), bearerReq(page))
	assert.True(t, next)
}

func TestStatusGate(t *testing.T) {
	s, issuer, _, users := newTestSession(t)
	users[5] = activeUser(5)
	tok, err := issuer.IssueAccessToken(utils.NewTokenClaims(users[5], false))
	require.NoError(t, err)

	chain := func(replace bool) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return s.RequireAccessToken()(s.StatusGate(replace)(next))
		}
	}

	// Active user passes; with replacePrincipal the fresh record attaches.
	_, c, next := runMiddleware(chain(true), bearerReq(tok))
	assert.True(t, next)
	u, found := CurrentUser(c)
	require.True(t, found)
	assert.Equal(t, uint64(5), u.ID)

	_, c, next = runMiddleware(chain(false), bearerReq(tok))
	assert.True(t, next)
	_, found = CurrentUser(c)
	assert.False(t, found)

	// Blocking takes effect on the next request even though the token is
	// still cryptographically valid.
	blocked := users[5]
	blocked.AccountStatus = model.StatusBlocked
	users[5] = blocked

	rec, _, next := runMiddleware(chain(true), bearerReq(tok))
	assert.False(t, next)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), string(model.ErrTypeUserBlocked))

	// A deleted account reads as an invalid token, not a server error.
	delete(users, 5)
	rec, _, next = runMiddleware(chain(true), bearerReq(tok))
	assert.False(t, next)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), string(model.ErrTypeTokenInvalid))
}

func TestRequireAdminAccessCookie(t *testing.T) {
	s, issuer, _, _ := newTestSession(t)

	admin := activeUser(1)
	admin.Role = model.RoleAdmin
	adminTok, err := issuer.IssueAdminAccessToken(utils.NewTokenClaims(admin, false))
	require.NoError(t, err)
	userTok, err := issuer.IssueAccessToken(utils.NewTokenClaims(activeUser(2), false))
	require.NoError(t, err)

	cookieReq := func(tok string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: utils.AccessCookieName, Value: tok})
		return req
	}

	_, _, next := runMiddleware(s.RequireAdminAccessCookie(), cookieReq(adminTok))
	assert.True(t, next)

	rec, _, next := runMiddleware(s.RequireAdminAccessCookie(), cookieReq(userTok))
	assert.False(t, next)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Bearer header alone is not an admin session.
	rec, _, next = runMiddleware(s.RequireAdminAccessCookie(), bearerReq(adminTok))
	assert.False(t, next)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
