package model

import (
	"database/sql"
	"time"
)

// Role is the closed set of account roles. Stored as a string column but
// only these two values are ever written.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AccountStatus is toggled by administrators only. A blocked user keeps
// their record and tokens, but every authenticated request is rejected
// until the account is unblocked.
type AccountStatus string

const (
	StatusActive  AccountStatus = "active"
	StatusBlocked AccountStatus = "blocked"
)

// AuthErrorType is the machine-readable code carried on 401 responses so
// clients can branch between "log in again" and "your code expired".
type AuthErrorType string

const (
	ErrTypeTokenInvalid     AuthErrorType = "TOKEN_INVALID"
	ErrTypeTokenBlacklisted AuthErrorType = "TOKEN_BLACKLISTED"
	ErrTypeUserBlocked      AuthErrorType = "USER_BLOCKED"
)

// User mirrors the 'users' table.
//
// A user is created unverified on signup. IsVerified flips true exactly
// once, after a successful OTP check. Unverified rows older than the
// retention window are removed by the background sweeper together with
// any uploaded avatar object.
type User struct {
	ID            uint64         // users.id
	Name          string         // users.name
	DisplayName   sql.NullString // users.display_name (nullable)
	Email         string         // users.email (unique)
	PasswordHash  string         // users.password_hash (bcrypt)
	Role          Role           // users.role
	IsVerified    bool           // users.is_verified
	AccountStatus AccountStatus  // users.account_status
	TermsAccepted bool           // users.terms_accepted
	TermsAt       time.Time      // users.terms_accepted_at
	Location      sql.NullString // users.location (nullable)
	Phone         sql.NullString // users.phone (nullable)
	AvatarURL     sql.NullString // users.avatar_url (nullable)
	CreatedAt     time.Time      // users.created_at
	UpdatedAt     time.Time      // users.updated_at
}

// Public is the trimmed projection returned by signup/login/profile
// responses. Password hash and internal timestamps stay server-side.
type Public struct {
	ID            uint64        `json:"id"`
	Name          string        `json:"name"`
	DisplayName   string        `json:"displayName,omitempty"`
	Email         string        `json:"email"`
	Role          Role          `json:"role"`
	IsVerified    bool          `json:"isVerified"`
	AccountStatus AccountStatus `json:"accountStatus"`
	Location      string        `json:"location,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	AvatarURL     string        `json:"avatar,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Public converts the stored row into its response projection.
func (u User) Public() Public {
	return Public{
		ID:            u.ID,
		Name:          u.Name,
		DisplayName:   u.DisplayName.String,
		Email:         u.Email,
		Role:          u.Role,
		IsVerified:    u.IsVerified,
		AccountStatus: u.AccountStatus,
		Location:      u.Location.String,
		Phone:         u.Phone.String,
		AvatarURL:     u.AvatarURL.String,
		CreatedAt:     u.CreatedAt,
	}
}
