package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagvault/api/internal/model"
	"github.com/bagvault/api/internal/queue"
	"github.com/bagvault/api/internal/repository"
	"github.com/bagvault/api/internal/utils"
)

const testOTPSecret = "otp-hash-secret"

type memUsers struct {
	nextID uint64
	byID   map[uint64]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, byID: map[uint64]model.User{}}
}

func (m *memUsers) Create(_ context.Context, p repository.NewUserParams) (uint64, error) {
	id := m.nextID
	m.nextID++
	m.byID[id] = model.User{
		ID:            id,
		Name:          p.Name,
		Email:         p.Email,
		PasswordHash:  p.PasswordHash,
		Role:          model.RoleUser,
		AccountStatus: model.StatusActive,
	}
	return id, nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) MarkVerified(_ context.Context, id uint64) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsVerified = true
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	m.byID[id] = u
	return nil
}

type sentEmail struct {
	kind  string
	email string
	otp   string
}

type memEmails struct{ sent []sentEmail }

func (m *memEmails) EnqueueSignupVerifyOTP(_ context.Context, _, email, otp string, _ int) error {
	m.sent = append(m.sent, sentEmail{kind: queue.JobSignupVerifyOTP, email: email, otp: otp})
	return nil
}

func (m *memEmails) EnqueueRecoverOTP(_ context.Context, _, email, otp string, _ int) error {
	m.sent = append(m.sent, sentEmail{kind: queue.JobRecoverOTP, email: email, otp: otp})
	return nil
}

func (m *memEmails) EnqueuePasswordResetSuccess(_ context.Context, _, email string) error {
	m.sent = append(m.sent, sentEmail{kind: queue.JobPasswordResetSuccess, email: email})
	return nil
}

type fixture struct {
	svc       *AuthService
	users     *memUsers
	otps      *repository.OTPRepo
	blacklist *repository.BlacklistRepo
	emails    *memEmails
	issuer    *utils.TokenIssuer
	redis     *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	users := newMemUsers()
	otps := repository.NewOTPRepo(rdb)
	blacklist := repository.NewBlacklistRepo(rdb)
	emails := &memEmails{}
	issuer := utils.NewTokenIssuer("access", "refresh", "otp-page")

	return &fixture{
		svc:       NewAuthService(users, otps, blacklist, emails, issuer, testOTPSecret, 2, 4),
		users:     users,
		otps:      otps,
		blacklist: blacklist,
		emails:    emails,
		issuer:    issuer,
		redis:     mr,
	}
}

func TestSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, "collector", "user@example.com", "Sup3rSecret", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "collector", res.User.Name)
	assert.False(t, res.User.IsVerified)

	// The page token must verify against the OTP-page secret only.
	claims, err := f.issuer.VerifyOTPPageToken(res.OTPPageToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID())
	_, err = f.issuer.VerifyAccessToken(res.OTPPageToken)
	assert.Error(t, err)

	// Stored user carries a bcrypt hash, never the plaintext.
	u, err := f.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", u.PasswordHash)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "Sup3rSecret"))

	// The queued code matches the stored digest.
	require.Len(t, f.emails.sent, 1)
	assert.Equal(t, queue.JobSignupVerifyOTP, f.emails.sent[0].kind)
	digest, err := f.otps.Get(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, utils.VerifyOTP(testOTPSecret, digest, f.emails.sent[0].otp))
}

func TestVerifyOtpConsumesPageToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, "collector", "user@example.com", "Sup3rSecret", time.Now())
	require.NoError(t, err)
	claims, err := f.issuer.VerifyOTPPageToken(res.OTPPageToken)
	require.NoError(t, err)

	access, err := f.svc.VerifyOtp(ctx, claims, res.OTPPageToken)
	require.NoError(t, err)

	ac, err := f.issuer.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.True(t, ac.IsVerified)

	u, err := f.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	revoked, err := f.blacklist.Contains(ctx, res.OTPPageToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.otps.Get(ctx, res.User.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResendOtpReplacesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, "collector", "user@example.com", "Sup3rSecret", time.Now())
	require.NoError(t, err)
	claims, err := f.issuer.VerifyOTPPageToken(res.OTPPageToken)
	require.NoError(t, err)

	firstOTP := f.emails.sent[0].otp
	require.NoError(t, f.svc.ResendOtp(ctx, claims))
	require.Len(t, f.emails.sent, 2)

	digest, err := f.otps.Get(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, utils.VerifyOTP(testOTPSecret, digest, f.emails.sent[1].otp))
	if firstOTP != f.emails.sent[1].otp {
		assert.False(t, utils.VerifyOTP(testOTPSecret, digest, firstOTP))
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := model.User{ID: 9, Role: model.RoleUser, IsVerified: true, AccountStatus: model.StatusActive}
	access, err := f.svc.Login(u, false)
	require.NoError(t, err)
	claims, err := f.issuer.VerifyAccessToken(access)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, access, claims))
	revoked, err := f.blacklist.Contains(ctx, access)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAdminLogoutSkipsDeadRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := model.User{ID: 1, Role: model.RoleAdmin, IsVerified: true, AccountStatus: model.StatusActive}
	access, _, err := f.svc.AdminLogin(admin, false)
	require.NoError(t, err)
	accessClaims, err := f.issuer.VerifyAccessToken(access)
	require.NoError(t, err)

	// A mangled refresh cookie must not block logout of the access token.
	require.NoError(t, f.svc.AdminLogout(ctx, access, accessClaims, "garbage"))
	revoked, err := f.blacklist.Contains(ctx, access)
	require.NoError(t, err)
	assert.True(t, revoked)

	// With a live refresh token, both get revoked.
	access2, refresh2, err := f.svc.AdminLogin(admin, false)
	require.NoError(t, err)
	claims2, err := f.issuer.VerifyAccessToken(access2)
	require.NoError(t, err)
	require.NoError(t, f.svc.AdminLogout(ctx, access2, claims2, refresh2))
	for _, tok := range []string{access2, refresh2} {
		revoked, err = f.blacklist.Contains(ctx, tok)
		require.NoError(t, err)
		assert.True(t, revoked, "token should be revoked")
	}
}

func TestRecoverFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, "collector", "user@example.com", "Sup3rSecret", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.users.MarkVerified(ctx, res.User.ID))
	u, err := f.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)

	pageToken, err := f.svc.FindRecoverUser(ctx, u)
	require.NoError(t, err)
	claims, err := f.issuer.VerifyOTPPageToken(pageToken)
	require.NoError(t, err)

	last := f.emails.sent[len(f.emails.sent)-1]
	assert.Equal(t, queue.JobRecoverOTP, last.kind)
	digest, err := f.otps.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, utils.VerifyOTP(testOTPSecret, digest, last.otp))

	require.NoError(t, f.svc.RecoverVerifyOtp(ctx, claims))
	_, err = f.otps.Get(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, f.svc.RecoverResetPassword(ctx, claims, pageToken, "N3wPassword"))

	u, err = f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "N3wPassword"))
	assert.False(t, utils.VerifyPassword(u.PasswordHash, "Sup3rSecret"))

	revoked, err := f.blacklist.Contains(ctx, pageToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.Equal(t, queue.JobPasswordResetSuccess, f.emails.sent[len(f.emails.sent)-1].kind)
}
