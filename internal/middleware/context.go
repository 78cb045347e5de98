package middleware

// context.go defines the keys under which auth middleware stores the
// authenticated principal, plus small accessors for downstream handlers.

import (
	"github.com/labstack/echo/v4"

	"github.com/bagvault/api/internal/model"
	"github.com/bagvault/api/internal/utils"
)

const (
	ctxClaimsKey   = "authClaims"   // *utils.TokenClaims (verified token claims)
	ctxUserKey     = "authUser"     // model.User (fresh record, set by status gate or email lookup)
	ctxTokenKey    = "authToken"    // string (raw token, for blacklisting on logout)
	ctxRememberKey = "authRemember" // bool (remember-me flag from the login body)
)

// Claims returns the verified token claims attached by a token middleware,
// or nil when the route is unauthenticated.
func Claims(c echo.Context) *utils.TokenClaims {
	if v, ok := c.Get(ctxClaimsKey).(*utils.TokenClaims); ok {
		return v
	}
	return nil
}

// CurrentUser returns the full user record attached by the status gate or
// the email-lookup middleware. The bool is false when only token claims
// are available (e.g. on the logout route).
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUserKey).(model.User)
	return u, ok
}

// RawToken returns the raw bearer/cookie token of the current request.
func RawToken(c echo.Context) string {
	if v, ok := c.Get(ctxTokenKey).(string); ok {
		return v
	}
	return ""
}

// RememberMe returns the remember-me flag recorded by the login lookup.
func RememberMe(c echo.Context) bool {
	if v, ok := c.Get(ctxRememberKey).(bool); ok {
		return v
	}
	return false
}
