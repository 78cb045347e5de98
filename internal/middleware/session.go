package middleware

// session.go implements the per-request session chain: token extraction,
// blacklist lookup, signature/expiry verification, principal attachment,
// and the account-status gate. Ordering is significant: the blacklist
// check runs before signature verification so revocation takes effect
// even for otherwise-valid unexpired tokens, and the status gate runs
// after verification because it needs the verified subject id.

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bagvault/api/internal/model"
	"github.com/bagvault/api/internal/repository"
	"github.com/bagvault/api/internal/utils"
)

const dbTimeout = 5 * time.Second

// UserGetter is the slice of the user repository the session chain needs.
type UserGetter interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Revocations is the slice of the blacklist repository the chain needs.
type Revocations interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// Session bundles the collaborators of the auth middleware chain.
type Session struct {
	Issuer    *utils.TokenIssuer
	Blacklist Revocations
	Users     UserGetter
}

func NewSession(issuer *utils.TokenIssuer, blacklist Revocations, users UserGetter) *Session {
	return &Session{Issuer: issuer, Blacklist: blacklist, Users: users}
}

// authReject writes the standard 401 envelope with a machine-readable
// errorType for client-side branching.
func authReject(c echo.Context, msg string, errType model.AuthErrorType) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"success":   false,
		"message":   msg,
		"errorType": errType,
	})
}

// RequireAccessToken guards API routes with a bearer access token.
func (s *Session) RequireAccessToken() echo.MiddlewareFunc {
	return s.require(func(c echo.Context) string {
		return utils.ExtractBearer(c.Request())
	}, s.Issuer.VerifyAccessToken)
}

// RequireAdminAccessCookie guards admin browser routes with the access
// cookie and additionally enforces the admin role.
func (s *Session) RequireAdminAccessCookie() echo.MiddlewareFunc {
	verify := s.require(cookieToken(utils.AccessCookieName), s.Issuer.VerifyAccessToken)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			if cl := Claims(c); cl == nil || cl.Role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false,
					"message": "Admin access required",
				})
			}
			return next(c)
		})
	}
}

// RequireAdminRefreshCookie guards the admin token-rotation route with the
// refresh cookie, verified against the refresh secret.
func (s *Session) RequireAdminRefreshCookie() echo.MiddlewareFunc {
	verify := s.require(cookieToken(utils.RefreshCookieName), s.Issuer.VerifyRefreshToken)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			if cl := Claims(c); cl == nil || cl.Role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false,
					"message": "Admin access required",
				})
			}
			return next(c)
		})
	}
}

// RequireOTPPageToken guards the OTP verification and recovery pages with
// the narrow OTP-page token.
func (s *Session) RequireOTPPageToken() echo.MiddlewareFunc {
	return s.require(func(c echo.Context) string {
		return utils.ExtractBearer(c.Request())
	}, s.Issuer.VerifyOTPPageToken)
}

// require builds the extract -> blacklist -> verify -> attach sequence
// shared by all token classes.
func (s *Session) require(extract func(echo.Context) string, verify func(string) (*utils.TokenClaims, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extract(c)
			if raw == "" {
				return authReject(c, "Authentication token not found", model.ErrTypeTokenInvalid)
			}
			revoked, err := s.Blacklist.Contains(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			if revoked {
				return authReject(c, "Token has been revoked", model.ErrTypeTokenBlacklisted)
			}
			claims, err := verify(raw)
			if err != nil {
				return authReject(c, "Invalid or expired token", model.ErrTypeTokenInvalid)
			}
			c.Set(ctxClaimsKey, claims)
			c.Set(ctxTokenKey, raw)
			return next(c)
		}
	}
}

// StatusGate re-fetches the user behind the verified claims and rejects
// blocked accounts. When replacePrincipal is true the fresh record is
// attached so handlers see current state instead of stale token claims;
// the logout route passes false since the user object is about to become
// irrelevant.
func (s *Session) StatusGate(replacePrincipal bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := Claims(c)
			if claims == nil {
				return authReject(c, "Authentication token not found", model.ErrTypeTokenInvalid)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
			defer cancel()
			u, err := s.Users.GetByID(ctx, claims.UserID())
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return authReject(c, "User not found", model.ErrTypeTokenInvalid)
				}
				return err
			}
			if u.AccountStatus == model.StatusBlocked {
				return authReject(c, "Your account has been blocked, please contact an administrator", model.ErrTypeUserBlocked)
			}
			if replacePrincipal {
				c.Set(ctxUserKey, u)
			}
			return next(c)
		}
	}
}

func cookieToken(name string) func(echo.Context) string {
	return func(c echo.Context) string {
		ck, err := c.Cookie(name)
		if err != nil || ck.Value == "" {
			return ""
		}
		return ck.Value
	}
}
