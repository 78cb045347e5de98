package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bagvault/api/internal/dto"
	"github.com/bagvault/api/internal/middleware"
	"github.com/bagvault/api/internal/model"
	"github.com/bagvault/api/internal/repository"
	"github.com/bagvault/api/internal/service"
	"github.com/bagvault/api/internal/utils"
)

// AuthHandler exposes the signup, login, logout and recovery endpoints.
// Request bodies arrive pre-validated and credentials pre-checked by the
// middleware chain; the handlers drive the auth service and shape cookies
// and JSON.
type AuthHandler struct {
	Svc     *service.AuthService
	Cookies utils.CookiePolicy
}

func NewAuthHandler(svc *service.AuthService, cookies utils.CookiePolicy) *AuthHandler {
	return &AuthHandler{Svc: svc, Cookies: cookies}
}

// Signup creates an unverified account and hands back the OTP-page token
// the client needs to reach the verification page.
func (h *AuthHandler) Signup(c echo.Context) error {
	req := middleware.Body[dto.SignupRequest](c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Svc.Signup(ctx, req.Name, req.Email, req.Password, req.TermsAndPrivacyAcceptedAt)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// The pre-check middleware raced with a concurrent signup.
			return c.JSON(http.StatusConflict, fail("An account with this email already exists"))
		}
		return err
	}

	return c.JSON(http.StatusCreated, ok("User registered successfully, please verify your email", echo.Map{
		"user":  res.User,
		"token": res.OTPPageToken,
	}))
}

// VerifyOtp completes signup: the OTP was matched by middleware, so this
// marks the account verified and swaps the page token for an access token.
func (h *AuthHandler) VerifyOtp(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	access, err := h.Svc.VerifyOtp(ctx, middleware.Claims(c), middleware.RawToken(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Email verified successfully", echo.Map{"token": access}))
}

// ResendOtp reissues the signup verification code.
func (h *AuthHandler) ResendOtp(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.ResendOtp(ctx, middleware.Claims(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("OTP has been resent to your email", nil))
}

// Login returns a bearer access token for the credential-checked user.
func (h *AuthHandler) Login(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	access, err := h.Svc.Login(u, middleware.RememberMe(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Logged in successfully", echo.Map{
		"user":  u.Public(),
		"token": access,
	}))
}

// Logout revokes the presented access token.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.Logout(ctx, middleware.RawToken(c), middleware.Claims(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Logged out successfully", nil))
}

// Check confirms the bearer session is valid and the account active. The
// middleware chain does the actual work; reaching the handler is the
// confirmation.
func (h *AuthHandler) Check(c echo.Context) error {
	return c.JSON(http.StatusOK, ok("User authenticated", nil))
}

// AdminCheck is the cookie-session counterpart of Check.
func (h *AuthHandler) AdminCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, ok("Admin authenticated", nil))
}

// Me returns the fresh user record attached by the status gate.
func (h *AuthHandler) Me(c echo.Context) error {
	u, found := middleware.CurrentUser(c)
	if !found {
		return c.JSON(http.StatusUnauthorized, fail("Authentication required"))
	}
	return c.JSON(http.StatusOK, ok("User fetched successfully", echo.Map{"user": u.Public()}))
}

// AdminLogin authenticates an administrator and establishes the cookie
// session: a short-lived access cookie plus a refresh cookie whose
// lifetime follows the remember-me flag.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	if u.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, fail("Admin access required"))
	}
	remember := middleware.RememberMe(c)

	access, refresh, err := h.Svc.AdminLogin(u, remember)
	if err != nil {
		return err
	}

	refreshTTL := utils.RefreshTokenTTL
	if remember {
		refreshTTL = utils.RefreshRememberedTTL
	}
	c.SetCookie(h.Cookies.Cookie(utils.AccessCookieName, access, utils.AdminAccessTokenTTL))
	c.SetCookie(h.Cookies.Cookie(utils.RefreshCookieName, refresh, refreshTTL))

	return c.JSON(http.StatusOK, ok("Admin logged in successfully", echo.Map{"user": u.Public()}))
}

// AdminRefresh rotates the admin access cookie off the refresh cookie.
func (h *AuthHandler) AdminRefresh(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	access, err := h.Svc.AdminRefresh(ctx, middleware.Claims(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, fail("Invalid or expired token"))
		}
		return err
	}
	c.SetCookie(h.Cookies.Cookie(utils.AccessCookieName, access, utils.AdminAccessTokenTTL))
	return c.JSON(http.StatusOK, ok("Access token refreshed", nil))
}

// AdminLogout revokes both session cookies and clears them on the client.
func (h *AuthHandler) AdminLogout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	var refreshRaw string
	if ck, err := c.Cookie(utils.RefreshCookieName); err == nil {
		refreshRaw = ck.Value
	}
	if err := h.Svc.AdminLogout(ctx, middleware.RawToken(c), middleware.Claims(c), refreshRaw); err != nil {
		return err
	}
	c.SetCookie(h.Cookies.Expired(utils.AccessCookieName))
	c.SetCookie(h.Cookies.Expired(utils.RefreshCookieName))
	return c.JSON(http.StatusOK, ok("Admin logged out successfully", nil))
}

// RecoverFind starts password recovery for the resolved account and
// returns the recovery page token.
func (h *AuthHandler) RecoverFind(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	token, err := h.Svc.FindRecoverUser(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("OTP has been sent to your email", echo.Map{
		"user":  u.Public(),
		"token": token,
	}))
}

// RecoverVerifyOtp consumes the matched recovery code so it cannot be
// replayed on the reset step.
func (h *AuthHandler) RecoverVerifyOtp(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.RecoverVerifyOtp(ctx, middleware.Claims(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("OTP verified successfully", nil))
}

// RecoverResendOtp reissues the recovery code.
func (h *AuthHandler) RecoverResendOtp(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.RecoverResendOtp(ctx, middleware.Claims(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("OTP has been resent to your email", nil))
}

// RecoverResetPassword sets the new password and retires the recovery
// token.
func (h *AuthHandler) RecoverResetPassword(c echo.Context) error {
	req := middleware.Body[dto.ResetPasswordRequest](c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Svc.RecoverResetPassword(ctx, middleware.Claims(c), middleware.RawToken(c), req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Password has been reset successfully", nil))
}
