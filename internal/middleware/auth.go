package middleware

// auth.go holds the flow-specific middlewares that run before the auth
// orchestrator: duplicate-email rejection on signup, credential lookup
// and password comparison on login, and the OTP digest check on the
// verification pages. Each stage writes its own response so the error
// shape stays precise per failure kind.

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bagvault/api/internal/dto"
	"github.com/bagvault/api/internal/model"
	"github.com/bagvault/api/internal/repository"
	"github.com/bagvault/api/internal/utils"
)

// UserFinder is the slice of the user repository the pre-auth checks need.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// OTPGetter is the slice of the OTP repository the digest check needs.
type OTPGetter interface {
	Get(ctx context.Context, userID uint64) (string, error)
}

// AuthChecks bundles the collaborators of the pre-orchestrator middlewares.
type AuthChecks struct {
	Users         UserFinder
	OTPs          OTPGetter
	OTPHashSecret string
}

func NewAuthChecks(users UserFinder, otps OTPGetter, otpHashSecret string) *AuthChecks {
	return &AuthChecks{Users: users, OTPs: otps, OTPHashSecret: otpHashSecret}
}

// CheckSignupEmailFree rejects signup attempts reusing a registered email
// with 409, before the orchestrator ever runs.
func (a *AuthChecks) CheckSignupEmailFree() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			body := Body[dto.SignupRequest](c)
			ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
			defer cancel()
			_, err := a.Users.GetByEmail(ctx, body.Email)
			if err == nil {
				return c.JSON(http.StatusConflict, echo.Map{
					"success": false,
					"message": "User with this email already exists",
				})
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			return next(c)
		}
	}
}

// FindUserWithEmail resolves the body email to a user record and attaches
// it, rejecting unknown, unverified, and blocked accounts. Shared by the
// login and recovery-find routes; the body only needs to carry an email.
func (a *AuthChecks) FindUserWithEmail() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			carrier, ok := c.Get(ctxBodyKey).(dto.WithEmail)
			if !ok {
				return errors.New("email middleware requires a validated body with an email field")
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
			defer cancel()
			u, err := a.Users.GetByEmail(ctx, carrier.EmailAddress())
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"success": false,
						"message": "Invalid credentials, check your email and password",
					})
				}
				return err
			}
			if !u.IsVerified {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false,
					"message": "User with this email is not verified, please verify your account first",
				})
			}
			if u.AccountStatus == model.StatusBlocked {
				return authReject(c, "Your account has been blocked, please contact an administrator", model.ErrTypeUserBlocked)
			}
			c.Set(ctxUserKey, u)
			if r, ok := c.Get(ctxBodyKey).(dto.WithRememberMe); ok {
				c.Set(ctxRememberKey, r.Remembered())
			}
			return next(c)
		}
	}
}

// CheckPassword compares the body password against the attached user's
// bcrypt hash. Must run after FindUserWithEmail.
func (a *AuthChecks) CheckPassword() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			carrier, ok := c.Get(ctxBodyKey).(dto.WithPassword)
			if !ok {
				return errors.New("password middleware requires a validated body with a password field")
			}
			u, ok := CurrentUser(c)
			if !ok {
				return errors.New("password middleware requires a resolved user")
			}
			if !utils.VerifyPassword(u.PasswordHash, carrier.PlainPassword()) {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false,
					"message": "Invalid credentials, check your email and password",
				})
			}
			return next(c)
		}
	}
}

// CheckOTP validates the supplied code against the stored digest for the
// token subject. An absent digest means the code expired or was already
// consumed. Must run after RequireOTPPageToken.
func (a *AuthChecks) CheckOTP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := Claims(c)
			if claims == nil {
				return authReject(c, "Authentication token not found", model.ErrTypeTokenInvalid)
			}
			carrier, ok := c.Get(ctxBodyKey).(dto.WithOTP)
			if !ok {
				return errors.New("otp middleware requires a validated body with an otp field")
			}
			digest, err := a.OTPs.Get(c.Request().Context(), claims.UserID())
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"success": false,
						"message": "OTP has expired, please request a new code",
					})
				}
				return err
			}
			if !utils.VerifyOTP(a.OTPHashSecret, digest, carrier.Code()) {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false,
					"message": "Invalid OTP",
				})
			}
			return next(c)
		}
	}
}
