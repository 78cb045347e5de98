// Package service contains the auth orchestrator: the layer that composes
// the credential store, the ephemeral secret store, the token issuer and
// the email queue into the signup / verify / login / recover flows.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bagvault/api/internal/model"
	"github.com/bagvault/api/internal/repository"
	"github.com/bagvault/api/internal/utils"
)

// UserStore is the slice of the user repository the orchestrator needs.
type UserStore interface {
	Create(ctx context.Context, p repository.NewUserParams) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	MarkVerified(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// OTPStore holds at most one live OTP digest per user.
type OTPStore interface {
	Set(ctx context.Context, userID uint64, digest string, ttl time.Duration) error
	Delete(ctx context.Context, userID uint64) error
}

// TokenRevoker adds raw tokens to the server-side denylist.
type TokenRevoker interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
}

// EmailEnqueuer pushes email jobs onto the durable queue. Delivery is
// asynchronous; enqueue failures are logged but do not fail the request,
// since resend is the designed mitigation.
type EmailEnqueuer interface {
	EnqueueSignupVerifyOTP(ctx context.Context, name, email, otp string, expiresMin int) error
	EnqueueRecoverOTP(ctx context.Context, name, email, otp string, expiresMin int) error
	EnqueuePasswordResetSuccess(ctx context.Context, name, email string) error
}

// AuthService implements the auth flows. All token issuance, OTP
// lifecycle and revocation decisions live here; HTTP concerns stay in
// the middleware and handlers.
type AuthService struct {
	users      UserStore
	otps       OTPStore
	blacklist  TokenRevoker
	emails     EmailEnqueuer
	issuer     *utils.TokenIssuer
	otpSecret  string
	otpTTL     time.Duration
	bcryptCost int
}

func NewAuthService(users UserStore, otps OTPStore, blacklist TokenRevoker, emails EmailEnqueuer,
	issuer *utils.TokenIssuer, otpSecret string, otpTTLMin, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		otps:       otps,
		blacklist:  blacklist,
		emails:     emails,
		issuer:     issuer,
		otpSecret:  otpSecret,
		otpTTL:     time.Duration(otpTTLMin) * time.Minute,
		bcryptCost: bcryptCost,
	}
}

func (s *AuthService) otpTTLMin() int { return int(s.otpTTL / time.Minute) }

// SignupResult carries everything the signup handler returns to the client.
type SignupResult struct {
	User         model.Public
	OTPPageToken string
}

// Signup creates an unverified user, stores a fresh OTP digest and queues
// the verification email. Persistence happens first: a database failure
// leaves no OTP or email side effects behind. Uniqueness of the email has
// been pre-validated by middleware; a concurrent duplicate still surfaces
// as repository.ErrEmailExists.
func (s *AuthService) Signup(ctx context.Context, name, email, password string, termsAt time.Time) (SignupResult, error) {
	otp, err := utils.GenerateOTP()
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: generate otp: %w", err)
	}
	digest := utils.HashOTP(s.otpSecret, otp)
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: hash password: %w", err)
	}

	id, err := s.users.Create(ctx, repository.NewUserParams{
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		TermsAccepted: true,
		TermsAt:       termsAt,
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: %w", err)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: load created user: %w", err)
	}

	pageToken, err := s.issuer.IssueOTPPageToken(utils.NewTokenClaims(u, false))
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: issue otp-page token: %w", err)
	}
	if err := s.otps.Set(ctx, id, digest, s.otpTTL); err != nil {
		return SignupResult{}, fmt.Errorf("signup: store otp: %w", err)
	}
	s.enqueue(func() error {
		return s.emails.EnqueueSignupVerifyOTP(ctx, u.Name, u.Email, otp, s.otpTTLMin())
	}, "signup verification email")

	return SignupResult{User: u.Public(), OTPPageToken: pageToken}, nil
}

// VerifyOtp flips the verified flag, mints an access token, revokes the
// now-consumed OTP-page token for its remaining lifetime, and deletes the
// OTP record. The OTP digest itself was already checked by middleware.
func (s *AuthService) VerifyOtp(ctx context.Context, claims *utils.TokenClaims, rawToken string) (string, error) {
	userID := claims.UserID()
	if err := s.users.MarkVerified(ctx, userID); err != nil {
		return "", fmt.Errorf("verify otp: %w", err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("verify otp: %w", err)
	}
	access, err := s.issuer.IssueAccessToken(utils.NewTokenClaims(u, false))
	if err != nil {
		return "", fmt.Errorf("verify otp: issue access token: %w", err)
	}
	if err := s.blacklist.Add(ctx, rawToken, claims.ExpiresAt.Time); err != nil {
		return "", fmt.Errorf("verify otp: blacklist page token: %w", err)
	}
	if err := s.otps.Delete(ctx, userID); err != nil {
		return "", fmt.Errorf("verify otp: delete otp: %w", err)
	}
	return access, nil
}

// ResendOtp invalidates any outstanding code and issues a fresh one. The
// delete-then-set keeps the at-most-one-live-OTP invariant even when the
// set fails halfway.
func (s *AuthService) ResendOtp(ctx context.Context, claims *utils.TokenClaims) error {
	u, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return fmt.Errorf("resend otp: %w", err)
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("resend otp: generate: %w", err)
	}
	if err := s.otps.Delete(ctx, u.ID); err != nil {
		return fmt.Errorf("resend otp: drop previous: %w", err)
	}
	if err := s.otps.Set(ctx, u.ID, utils.HashOTP(s.otpSecret, otp), s.otpTTL); err != nil {
		return fmt.Errorf("resend otp: store: %w", err)
	}
	s.enqueue(func() error {
		return s.emails.EnqueueSignupVerifyOTP(ctx, u.Name, u.Email, otp, s.otpTTLMin())
	}, "resend verification email")
	return nil
}

// Login issues an access token for an already-authenticated user. The
// password check happened in middleware; this operation only mints.
func (s *AuthService) Login(u model.User, rememberMe bool) (string, error) {
	access, err := s.issuer.IssueAccessToken(utils.NewTokenClaims(u, rememberMe))
	if err != nil {
		return "", fmt.Errorf("login: issue access token: %w", err)
	}
	return access, nil
}

// AdminLogin mints the short-lived admin access token plus a refresh
// token; the handler sets both as httpOnly cookies.
func (s *AuthService) AdminLogin(u model.User, rememberMe bool) (access, refresh string, err error) {
	access, err = s.issuer.IssueAdminAccessToken(utils.NewTokenClaims(u, rememberMe))
	if err != nil {
		return "", "", fmt.Errorf("admin login: issue access token: %w", err)
	}
	refresh, err = s.issuer.IssueRefreshToken(utils.NewTokenClaims(u, rememberMe))
	if err != nil {
		return "", "", fmt.Errorf("admin login: issue refresh token: %w", err)
	}
	return access, refresh, nil
}

// AdminRefresh rotates the admin access token off a verified refresh
// token. The user is refetched so the new token carries current state,
// not the state frozen into the refresh token at login time.
func (s *AuthService) AdminRefresh(ctx context.Context, claims *utils.TokenClaims) (string, error) {
	u, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return "", fmt.Errorf("admin refresh: %w", err)
	}
	access, err := s.issuer.IssueAdminAccessToken(utils.NewTokenClaims(u, claims.RememberMe))
	if err != nil {
		return "", fmt.Errorf("admin refresh: issue access token: %w", err)
	}
	return access, nil
}

// Logout revokes the presented access token for exactly its remaining
// lifetime, so the blacklist entry never outlives the token it shadows.
func (s *AuthService) Logout(ctx context.Context, rawToken string, claims *utils.TokenClaims) error {
	if err := s.blacklist.Add(ctx, rawToken, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// AdminLogout revokes the admin access cookie and, when still valid, the
// refresh cookie. An unparseable refresh token is already dead and is
// skipped rather than treated as an error.
func (s *AuthService) AdminLogout(ctx context.Context, accessRaw string, accessClaims *utils.TokenClaims, refreshRaw string) error {
	if err := s.blacklist.Add(ctx, accessRaw, accessClaims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("admin logout: revoke access token: %w", err)
	}
	if refreshRaw == "" {
		return nil
	}
	refreshClaims, err := s.issuer.VerifyRefreshToken(refreshRaw)
	if err != nil {
		return nil
	}
	if err := s.blacklist.Add(ctx, refreshRaw, refreshClaims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("admin logout: revoke refresh token: %w", err)
	}
	return nil
}

// FindRecoverUser starts password recovery for a resolved user: fresh
// OTP, recovery email, and an OTP-page token scoped to the recovery pages.
func (s *AuthService) FindRecoverUser(ctx context.Context, u model.User) (string, error) {
	otp, err := utils.GenerateOTP()
	if err != nil {
		return "", fmt.Errorf("recover find: generate otp: %w", err)
	}
	pageToken, err := s.issuer.IssueOTPPageToken(utils.NewTokenClaims(u, false))
	if err != nil {
		return "", fmt.Errorf("recover find: issue otp-page token: %w", err)
	}
	if err := s.otps.Delete(ctx, u.ID); err != nil {
		return "", fmt.Errorf("recover find: drop previous otp: %w", err)
	}
	if err := s.otps.Set(ctx, u.ID, utils.HashOTP(s.otpSecret, otp), s.otpTTL); err != nil {
		return "", fmt.Errorf("recover find: store otp: %w", err)
	}
	s.enqueue(func() error {
		return s.emails.EnqueueRecoverOTP(ctx, u.Name, u.Email, otp, s.otpTTLMin())
	}, "recovery email")
	return pageToken, nil
}

// RecoverResendOtp reissues the recovery code, invalidating the old one.
func (s *AuthService) RecoverResendOtp(ctx context.Context, claims *utils.TokenClaims) error {
	u, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return fmt.Errorf("recover resend: %w", err)
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("recover resend: generate: %w", err)
	}
	if err := s.otps.Delete(ctx, u.ID); err != nil {
		return fmt.Errorf("recover resend: drop previous: %w", err)
	}
	if err := s.otps.Set(ctx, u.ID, utils.HashOTP(s.otpSecret, otp), s.otpTTL); err != nil {
		return fmt.Errorf("recover resend: store: %w", err)
	}
	s.enqueue(func() error {
		return s.emails.EnqueueRecoverOTP(ctx, u.Name, u.Email, otp, s.otpTTLMin())
	}, "recovery email")
	return nil
}

// RecoverVerifyOtp consumes the recovery code once middleware has matched
// it, so it cannot be replayed on the reset step.
func (s *AuthService) RecoverVerifyOtp(ctx context.Context, claims *utils.TokenClaims) error {
	if err := s.otps.Delete(ctx, claims.UserID()); err != nil {
		return fmt.Errorf("recover verify: %w", err)
	}
	return nil
}

// RecoverResetPassword stores the new password hash, revokes the recovery
// token for its remaining lifetime and queues the notification email.
func (s *AuthService) RecoverResetPassword(ctx context.Context, claims *utils.TokenClaims, rawToken, newPassword string) error {
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("recover reset: hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, claims.UserID(), hash); err != nil {
		return fmt.Errorf("recover reset: %w", err)
	}
	if err := s.blacklist.Add(ctx, rawToken, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("recover reset: blacklist recovery token: %w", err)
	}
	u, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return fmt.Errorf("recover reset: %w", err)
	}
	s.enqueue(func() error {
		return s.emails.EnqueuePasswordResetSuccess(ctx, u.Name, u.Email)
	}, "password changed email")
	return nil
}

// enqueue pushes an email job and logs on failure. Email delivery is
// at-least-once with resend as the user-facing mitigation; a broker
// hiccup must not fail the auth operation that already committed.
func (s *AuthService) enqueue(fn func() error, what string) {
	if err := fn(); err != nil {
		log.Printf("auth: enqueue %s failed: %v", what, err)
	}
}
