package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// AccessSessionChecker is what the auth middleware needs to reject revoked tokens.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	AddMember(ctx context.Context, key, member string, ttl time.Duration) error
	RemoveMember(ctx context.Context, key, member string) error
	Members(ctx context.Context, key string) ([]string, error)
	Keys() redis.Keyspace
}

// record is what Redis holds per access token id. Only a digest of the
// refresh token is stored.
type record struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

// Manager issues, rotates and revokes refresh sessions. Every session is
// indexed under its user so a password change can end all of them.
type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(s store, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: s, ttl: ttl, now: time.Now}, nil
}

// NewAccessID returns a fresh JWT id, which also names the session in Redis.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for userID under accessID and returns the refresh token.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if userID == uuid.Nil || strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("user id and access id are required")
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.put(ctx, userID, accessID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate swaps the session named by oldAccessID for a new one when provided
// matches its refresh token. The old session stops working immediately.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}
	current, err := m.load(ctx, oldAccessID)
	if err != nil {
		return Rotation{}, err
	}
	if subtle.ConstantTimeCompare([]byte(current.TokenHash), []byte(digest(provided))) != 1 {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := Rotation{UserID: current.UserID, AccessID: NewAccessID()}
	if next.RefreshToken, err = newRefreshToken(); err != nil {
		return Rotation{}, err
	}
	if err := m.put(ctx, current.UserID, next.AccessID, next.RefreshToken); err != nil {
		return Rotation{}, err
	}
	if err := m.drop(ctx, current.UserID, oldAccessID); err != nil {
		return Rotation{}, err
	}
	return next, nil
}

// Revoke ends one session. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	current, err := m.load(ctx, accessID)
	if errors.Is(err, ErrInvalidRefreshToken) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.drop(ctx, current.UserID, accessID)
}

// RevokeAll ends every session issued to userID and reports how many were open.
func (m *Manager) RevokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	keys := m.store.Keys()
	index := keys.UserSessions(userID.String())
	ids, err := m.store.Members(ctx, index)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	doomed := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		doomed = append(doomed, keys.Session(id))
	}
	doomed = append(doomed, index)
	if err := m.store.Del(ctx, doomed...); err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return len(ids), nil
}

// HasSession reports whether accessID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, nil
	}
	_, err := m.store.Get(ctx, m.store.Keys().Session(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

func (m *Manager) put(ctx context.Context, userID uuid.UUID, accessID, token string) error {
	payload, err := json.Marshal(record{UserID: userID, TokenHash: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return err
	}
	keys := m.store.Keys()
	if err := m.store.Set(ctx, keys.Session(accessID), payload, m.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := m.store.AddMember(ctx, keys.UserSessions(userID.String()), accessID, m.ttl); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, accessID string) (*record, error) {
	raw, err := m.store.Get(ctx, m.store.Keys().Session(accessID))
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.UserID == uuid.Nil {
		// Unreadable records are treated as gone.
		return nil, ErrInvalidRefreshToken
	}
	return &rec, nil
}

func (m *Manager) drop(ctx context.Context, userID uuid.UUID, accessID string) error {
	keys := m.store.Keys()
	return multierr.Combine(
		m.store.Del(ctx, keys.Session(accessID)),
		m.store.RemoveMember(ctx, keys.UserSessions(userID.String()), accessID),
	)
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
