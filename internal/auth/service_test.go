package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type stubSessions struct {
	accessIDs []string
	owners    []uuid.UUID
	revoked   []uuid.UUID
	revokeErr error
}

func (s *stubSessions) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	s.accessIDs = append(s.accessIDs, accessID)
	s.owners = append(s.owners, userID)
	return "refresh-" + accessID, nil
}

func (s *stubSessions) RevokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	if s.revokeErr != nil {
		return 0, s.revokeErr
	}
	s.revoked = append(s.revoked, userID)
	return 2, nil
}

type recordingMailer struct {
	welcomed []string
	resets   map[string]string
}

func (m *recordingMailer) Welcome(ctx context.Context, email string) {
	m.welcomed = append(m.welcomed, email)
}

func (m *recordingMailer) PasswordReset(ctx context.Context, email, token string) {
	if m.resets == nil {
		m.resets = map[string]string{}
	}
	m.resets[email] = token
}

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
	ResetTokenTTL:    time.Hour,
}

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "storefront",
	ExpirationMinutes: 15,
}

type fixture struct {
	svc      *service
	users    *users.Repository
	sessions *stubSessions
	mailer   *recordingMailer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t))
	sessions := &stubSessions{}
	mailer := &recordingMailer{}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		Mailer:         mailer,
		Logger:         logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard}),
		JWTConfig:      testJWTConfig,
		PasswordConfig: testPasswordConfig,
	})
	require.NoError(t, err)
	return fixture{svc: svc.(*service), users: repo, sessions: sessions, mailer: mailer}
}

func TestSignupCreatesUserAndWelcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dto, err := f.svc.Signup(ctx, SignupRequest{Email: "New@Example.com", Password: "abc123", ConfirmPassword: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", dto.Email)
	assert.Equal(t, []string{"new@example.com"}, f.mailer.welcomed)

	stored, err := f.users.FindByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	result, err := security.NewHasher(testPasswordConfig).Verify("abc123", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, result.Match)
	assert.False(t, result.Stale)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupRequest{Email: "dup@example.com", Password: "abc123", ConfirmPassword: "abc123"})
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, SignupRequest{Email: "DUP@example.com", Password: "abc123", ConfirmPassword: "abc123"})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Len(t, f.mailer.welcomed, 1)
}

func TestSignupRejectsMismatchedConfirmation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Signup(context.Background(), SignupRequest{Email: "a@example.com", Password: "abc123", ConfirmPassword: "abc124"})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestLoginIssuesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupRequest{Email: "login@example.com", Password: "abc123", ConfirmPassword: "abc123"})
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "abc123"})
	require.NoError(t, err)
	require.Len(t, f.sessions.accessIDs, 1)
	assert.Equal(t, "refresh-"+f.sessions.accessIDs[0], resp.RefreshToken)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, f.sessions.accessIDs[0], claims.ID)
	assert.Equal(t, []uuid.UUID{resp.User.ID}, f.sessions.owners)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupRequest{Email: "login@example.com", Password: "abc123", ConfirmPassword: "abc123"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "wrong1"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "abc123"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
	assert.Empty(t, f.sessions.accessIDs)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupRequest{Email: "reset@example.com", Password: "abc123", ConfirmPassword: "abc123"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, ResetRequest{Email: "reset@example.com"}))
	token := f.mailer.resets["reset@example.com"]
	require.Len(t, token, security.ResetTokenLength)

	require.NoError(t, f.svc.ResetPassword(ctx, NewPasswordRequest{Token: token, Password: "newpass1"}))
	user, err := f.users.FindByEmail(ctx, "reset@example.com")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user.ID}, f.sessions.revoked)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "reset@example.com", Password: "newpass1"})
	require.NoError(t, err)

	// tokens are single use
	err = f.svc.ResetPassword(ctx, NewPasswordRequest{Token: token, Password: "another1"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestPasswordResetExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupRequest{Email: "late@example.com", Password: "abc123", ConfirmPassword: "abc123"})
	require.NoError(t, err)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, ResetRequest{Email: "late@example.com"}))

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	err = f.svc.ResetPassword(ctx, NewPasswordRequest{Token: f.mailer.resets["late@example.com"], Password: "newpass1"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), ResetRequest{Email: "ghost@example.com"}))
	assert.Empty(t, f.mailer.resets)
}

func TestPasswordResetSucceedsWhenRevokeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, SignupRequest{Email: "flaky@example.com", Password: "abc123", ConfirmPassword: "abc123"})
	require.NoError(t, err)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, ResetRequest{Email: "flaky@example.com"}))

	f.sessions.revokeErr = errors.New("redis down")
	require.NoError(t, f.svc.ResetPassword(ctx, NewPasswordRequest{Token: f.mailer.resets["flaky@example.com"], Password: "newpass1"}))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "flaky@example.com", Password: "newpass1"})
	require.NoError(t, err)
}

func TestLoginUpgradesStaleHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older := testPasswordConfig
	older.ArgonTime = 2
	legacy, err := security.NewHasher(older).Hash("abc123")
	require.NoError(t, err)
	_, err = f.users.Create(ctx, "old@example.com", legacy)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "old@example.com", Password: "abc123"})
	require.NoError(t, err)

	stored, err := f.users.FindByEmail(ctx, "old@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, legacy, stored.PasswordHash)
	result, err := security.NewHasher(testPasswordConfig).Verify("abc123", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, result.Match)
	assert.False(t, result.Stale)
}
