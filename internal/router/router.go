// Package router wires handlers and middleware onto the Echo instance.
// Each route lists its chain explicitly so the order of extraction,
// revocation check, verification and status gating is visible in one
// place.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bagvault/api/internal/dto"
	"github.com/bagvault/api/internal/handler"
	"github.com/bagvault/api/internal/middleware"
)

// Deps carries everything route registration needs.
type Deps struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Admin   *handler.AdminUserHandler
	Session *middleware.Session
	Checks  *middleware.AuthChecks
	// RateLimit fronts the auth group; pass-through when disabled.
	RateLimit echo.MiddlewareFunc
}

// Register mounts every route under /api/v1 plus the health check.
func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = errorHandler
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	if d.RateLimit != nil {
		auth.Use(d.RateLimit)
	}

	auth.POST("/signup",
		d.Auth.Signup,
		middleware.ValidateBody[dto.SignupRequest](),
		d.Checks.CheckSignupEmailFree(),
	)
	auth.POST("/verify",
		d.Auth.VerifyOtp,
		d.Session.RequireOTPPageToken(),
		middleware.ValidateBody[dto.VerifyOTPRequest](),
		d.Checks.CheckOTP(),
	)
	auth.POST("/resend",
		d.Auth.ResendOtp,
		d.Session.RequireOTPPageToken(),
	)
	auth.POST("/login",
		d.Auth.Login,
		middleware.ValidateBody[dto.LoginRequest](),
		d.Checks.FindUserWithEmail(),
		d.Checks.CheckPassword(),
	)
	auth.GET("/check",
		d.Auth.Check,
		d.Session.RequireAccessToken(),
		d.Session.StatusGate(false),
	)
	auth.POST("/logout",
		d.Auth.Logout,
		d.Session.RequireAccessToken(),
		d.Session.StatusGate(false),
	)
	auth.GET("/me",
		d.Auth.Me,
		d.Session.RequireAccessToken(),
		d.Session.StatusGate(true),
	)

	// Admin sessions live in httpOnly cookies rather than bearer headers.
	auth.POST("/admin/login",
		d.Auth.AdminLogin,
		middleware.ValidateBody[dto.LoginRequest](),
		d.Checks.FindUserWithEmail(),
		d.Checks.CheckPassword(),
	)
	auth.GET("/admin/check",
		d.Auth.AdminCheck,
		d.Session.RequireAdminAccessCookie(),
		d.Session.StatusGate(false),
	)
	auth.POST("/admin/refresh",
		d.Auth.AdminRefresh,
		d.Session.RequireAdminRefreshCookie(),
		d.Session.StatusGate(false),
	)
	auth.POST("/admin/logout",
		d.Auth.AdminLogout,
		d.Session.RequireAdminAccessCookie(),
	)

	// Password recovery mirrors signup verification: the find step issues
	// a page token, the later steps require it.
	auth.POST("/recover/find",
		d.Auth.RecoverFind,
		middleware.ValidateBody[dto.RecoverFindRequest](),
		d.Checks.FindUserWithEmail(),
	)
	auth.POST("/recover/verify",
		d.Auth.RecoverVerifyOtp,
		d.Session.RequireOTPPageToken(),
		middleware.ValidateBody[dto.VerifyOTPRequest](),
		d.Checks.CheckOTP(),
	)
	auth.POST("/recover/resend",
		d.Auth.RecoverResendOtp,
		d.Session.RequireOTPPageToken(),
	)
	auth.PATCH("/recover/reset",
		d.Auth.RecoverResetPassword,
		d.Session.RequireOTPPageToken(),
		middleware.ValidateBody[dto.ResetPasswordRequest](),
	)

	users := v1.Group("/users")
	users.PATCH("/profile",
		d.Profile.Update,
		d.Session.RequireAccessToken(),
		d.Session.StatusGate(true),
		middleware.ValidateBody[dto.UpdateProfileRequest](),
	)

	admin := v1.Group("/admin")
	admin.PATCH("/users/:id/status",
		d.Admin.UpdateStatus,
		d.Session.RequireAdminAccessCookie(),
		d.Session.StatusGate(false),
		middleware.ValidateBody[dto.UpdateStatusRequest](),
	)
}

// errorHandler converts unhandled errors into the standard failure
// envelope so clients never see Echo's default error shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Something went wrong, please try again later"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	}
	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	_ = c.JSON(code, echo.Map{"success": false, "message": msg})
}
