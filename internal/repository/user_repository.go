package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/bagvault/api/internal/model"
)

const userColumns = "id,name,display_name,email,password_hash,role,is_verified,account_status," +
	"terms_accepted,terms_accepted_at,location,phone,avatar_url,created_at,updated_at"

// UserRepo persists user records in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUserParams carries the validated signup payload plus the already
// computed bcrypt hash. Hashing happens in the service layer so the
// repository never sees a plaintext password.
type NewUserParams struct {
	Name          string
	Email         string
	PasswordHash  string
	TermsAccepted bool
	TermsAt       time.Time
}

// Create inserts an unverified, active user and returns its id.
func (r *UserRepo) Create(ctx context.Context, p NewUserParams) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, is_verified, account_status, terms_accepted, terms_accepted_at) VALUES (?,?,?,?,?,?,?,?)",
		p.Name, normalizeEmail(p.Email), p.PasswordHash, model.RoleUser, false, model.StatusActive, p.TermsAccepted, p.TermsAt)
	if err != nil {
		// MySQL 1062 = duplicate entry on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// MarkVerified flips is_verified true. The flag only ever moves in one
// direction, and the OTP middleware gates the single call site.
func (r *UserRepo) MarkVerified(ctx context.Context, id uint64) error {
	return r.mutate(ctx, "UPDATE users SET is_verified=1 WHERE id=?", id)
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	return r.mutate(ctx, "UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
}

// UpdateStatus sets account_status; admin-only at the handler level.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status model.AccountStatus) error {
	return r.mutate(ctx, "UPDATE users SET account_status=? WHERE id=?", status, id)
}

// ProfileUpdate holds the optional profile fields; nil pointers are left
// untouched by UpdateProfile.
type ProfileUpdate struct {
	DisplayName *string
	Location    *string
	Phone       *string
}

// UpdateProfile applies the non-nil fields of the update in one statement.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfileUpdate) error {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if p.DisplayName != nil {
		sets = append(sets, "display_name=?")
		args = append(args, *p.DisplayName)
	}
	if p.Location != nil {
		sets = append(sets, "location=?")
		args = append(args, *p.Location)
	}
	if p.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, *p.Phone)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	return r.mutate(ctx, "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
}

// UnverifiedUser is the projection needed by the retention sweeper: just
// enough to delete the row and its avatar object.
type UnverifiedUser struct {
	ID        uint64
	AvatarURL sql.NullString
}

// ListUnverifiedBefore returns users that never verified and were created
// at or before the cutoff.
func (r *UserRepo) ListUnverifiedBefore(ctx context.Context, cutoff time.Time) ([]UnverifiedUser, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, avatar_url FROM users WHERE is_verified=0 AND created_at<=?", cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnverifiedUser
	for rows.Next() {
		var u UnverifiedUser
		if err := rows.Scan(&u.ID, &u.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteByIDs removes the given users. Used only by the sweeper.
func (r *UserRepo) DeleteByIDs(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.DisplayName, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsVerified, &u.AccountStatus, &u.TermsAccepted, &u.TermsAt,
		&u.Location, &u.Phone, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func (r *UserRepo) mutate(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
