package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user := &models.User{
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
	}
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return repo.First[models.User](r.DB(ctx), "email = ?", NormalizeEmail(email))
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return repo.First[models.User](r.DB(ctx), "id = ?", id)
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// SetResetToken stores the hash of a password reset token and its expiry.
func (r *Repository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reset_token_hash":       tokenHash,
			"reset_token_expires_at": expiresAt,
		}).Error
}

// FindByResetToken loads the user owning an unexpired reset token.
func (r *Repository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return repo.First[models.User](r.DB(ctx), "reset_token_hash = ? AND reset_token_expires_at > ?", tokenHash, now)
}

// UpdatePassword replaces the password hash and consumes any reset token.
// Returns false when the token was consumed concurrently.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string) (bool, error) {
	res := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ? AND reset_token_hash = ?", id, tokenHash).
		Updates(map[string]any{
			"password_hash":          passwordHash,
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReplacePasswordHash swaps in a re-derived hash for the same password. It is a
// no-op when the password changed in the meantime.
func (r *Repository) ReplacePasswordHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error) {
	res := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ? AND password_hash = ?", id, oldHash).
		UpdateColumn("password_hash", newHash)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SwapPendingSession replaces the user's pending checkout session only if it
// still equals expected. A nil expected matches no pending session and a nil
// next clears it. Returns false when another writer got there first.
func (r *Repository) SwapPendingSession(ctx context.Context, id uuid.UUID, expected, next *string) (bool, error) {
	query := r.DB(ctx).Model(&models.User{}).Where("id = ?", id)
	if expected == nil {
		query = query.Where("pending_session_id IS NULL")
	} else {
		query = query.Where("pending_session_id = ?", *expected)
	}
	res := query.UpdateColumn("pending_session_id", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
