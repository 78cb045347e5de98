// Package dto defines the request bodies accepted by the API. Validation
// rules live on the struct tags and are enforced by the body-validation
// middleware before any auth middleware or handler runs.
package dto

import "time"

// SignupRequest creates an unverified user. Terms must be accepted and
// the acceptance timestamp must accompany the flag.
type SignupRequest struct {
	Name                      string    `json:"name" validate:"required,min=4"`
	Email                     string    `json:"email" validate:"required,email"`
	Password                  string    `json:"password" validate:"required,min=8,max=128,password"`
	IsTermsAndPrivacyAccepted bool      `json:"isTermsAndPrivacyAccepted" validate:"required,eq=true"`
	TermsAndPrivacyAcceptedAt time.Time `json:"termsAndPrivacyAcceptedAt" validate:"required"`
}

// LoginRequest authenticates with body credentials. RememberMe stretches
// token lifetimes.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=128"`
	RememberMe bool   `json:"rememberMe"`
}

// VerifyOTPRequest carries the 6-digit code typed on the OTP page.
type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

// RecoverFindRequest starts the password-recovery flow.
type RecoverFindRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest sets the new password at the end of recovery.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128,password"`
}

// UpdateProfileRequest patches the optional profile fields. Absent fields
// are left untouched.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,min=4"`
	Location    *string `json:"location" validate:"omitempty,max=128"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
}

// UpdateStatusRequest blocks or unblocks an account. Admin only.
type UpdateStatusRequest struct {
	AccountStatus string `json:"accountStatus" validate:"required,oneof=active blocked"`
}

// Interfaces implemented by the bodies above so shared auth middleware
// can read credentials without knowing the concrete request type.

// WithEmail is any body carrying an email address.
type WithEmail interface{ EmailAddress() string }

// WithPassword is any body carrying a plaintext password to check.
type WithPassword interface{ PlainPassword() string }

// WithRememberMe is any body carrying the remember-me flag.
type WithRememberMe interface{ Remembered() bool }

// WithOTP is any body carrying a one-time code.
type WithOTP interface{ Code() string }

func (r *LoginRequest) EmailAddress() string       { return r.Email }
func (r *LoginRequest) PlainPassword() string      { return r.Password }
func (r *LoginRequest) Remembered() bool           { return r.RememberMe }
func (r *RecoverFindRequest) EmailAddress() string { return r.Email }
func (r *VerifyOTPRequest) Code() string           { return r.OTP }
