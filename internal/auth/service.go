package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const defaultResetTTL = time.Hour

var (
	errInvalidCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	errResetLinkInvalid   = pkgerrors.Validation("token", "reset link is invalid or has expired")
	errEmailTaken         = pkgerrors.Validation("email", "E-Mail exists already, please pick a different one")
)

// Service is the account surface behind /api/v1/auth.
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	RequestPasswordReset(ctx context.Context, req ResetRequest) error
	ResetPassword(ctx context.Context, req NewPasswordRequest) error
}

type userRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ReplacePasswordHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error)
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string) (bool, error)
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) (int, error)
}

type mailer interface {
	Welcome(ctx context.Context, email string)
	PasswordReset(ctx context.Context, email, token string)
}

type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Mailer         mailer
	Logger         *logger.Logger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type service struct {
	users    userRepository
	sessions sessionManager
	mailer   mailer
	logg     *logger.Logger
	hasher   *security.Hasher
	jwtCfg   config.JWTConfig
	resetTTL time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.UserRepo == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.SessionManager == nil:
		return nil, fmt.Errorf("session manager is required")
	case params.Mailer == nil:
		return nil, fmt.Errorf("mailer is required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	}
	resetTTL := params.PasswordConfig.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetTTL
	}
	return &service{
		users:    params.UserRepo,
		sessions: params.SessionManager,
		mailer:   params.Mailer,
		logg:     params.Logger,
		hasher:   security.NewHasher(params.PasswordConfig),
		jwtCfg:   params.JWTConfig,
		resetTTL: resetTTL,
		now:      time.Now,
	}, nil
}

func (s *service) Signup(ctx context.Context, req SignupRequest) (*users.UserDTO, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.Validation("email", "email is required")
	}
	if req.Password != req.ConfirmPassword {
		return nil, pkgerrors.Validation("confirm_password", "passwords have to match")
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, email, hash)
	if db.IsUniqueViolation(err, "") {
		return nil, errEmailTaken
	}
	if err != nil {
		return nil, pkgerrors.Persistence(err, "create user")
	}
	s.mailer.Welcome(ctx, user.Email)
	return users.FromModel(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.checkCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(ctx, user.ID.String())

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Persistence(err, "record login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	access, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := s.sessions.Generate(ctx, user.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session")
	}
	return &LoginResponse{AccessToken: access, RefreshToken: refresh, User: users.FromModel(user)}, nil
}

// RequestPasswordReset emails a reset link. Unknown addresses get the same
// response so accounts cannot be enumerated.
func (s *service) RequestPasswordReset(ctx context.Context, req ResetRequest) error {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if db.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return pkgerrors.Persistence(err, "lookup user")
	}

	token, err := security.NewResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := s.users.SetResetToken(ctx, user.ID, token.Digest, s.now().UTC().Add(s.resetTTL)); err != nil {
		return pkgerrors.Persistence(err, "store reset token")
	}
	s.mailer.PasswordReset(ctx, user.Email, token.Value)
	return nil
}

// ResetPassword consumes a reset token and signs the user out everywhere.
func (s *service) ResetPassword(ctx context.Context, req NewPasswordRequest) error {
	digest := security.DigestResetToken(req.Token)
	user, err := s.users.FindByResetToken(ctx, digest, s.now().UTC())
	if db.IsNotFound(err) {
		return errResetLinkInvalid
	}
	if err != nil {
		return pkgerrors.Persistence(err, "lookup reset token")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	updated, err := s.users.UpdatePassword(ctx, user.ID, digest, hash)
	if err != nil {
		return pkgerrors.Persistence(err, "update password")
	}
	if !updated {
		return errResetLinkInvalid
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	if revoked, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		s.logg.Error(ctx, "password changed but sessions were not revoked", err)
	} else if revoked > 0 {
		s.logg.Info(s.logg.WithField(ctx, "revoked", revoked), "sessions revoked after password reset")
	}
	return nil
}

func (s *service) checkCredentials(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if db.IsNotFound(err) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, pkgerrors.Persistence(err, "lookup user")
	}

	result, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !result.Match {
		return nil, errInvalidCredentials
	}
	if result.Stale {
		s.upgradeHash(ctx, user, password)
	}
	return user, nil
}

// upgradeHash re-derives a hash made with older argon2 parameters. Failure
// only costs another upgrade attempt on the next login.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		_, err = s.users.ReplacePasswordHash(ctx, user.ID, user.PasswordHash, hash)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "password hash upgrade failed: "+err.Error())
		return
	}
	user.PasswordHash = hash
}
