package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	sets   map[string]map[string]bool
	keys   redis.Keyspace
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		values: map[string]string{},
		sets:   map[string]map[string]bool{},
		keys:   redis.NewKeyspace("test"),
	}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		delete(m.sets, k)
	}
	return nil
}

func (m *memoryStore) AddMember(_ context.Context, key, member string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = map[string]bool{}
	}
	m.sets[key][member] = true
	return nil
}

func (m *memoryStore) RemoveMember(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[key], member)
	return nil
}

func (m *memoryStore) Members(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *memoryStore) Keys() redis.Keyspace { return m.keys }

func newTestManager(t *testing.T) (*Manager, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	manager, err := newManager(store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	require.NoError(t, err)
	return manager, store
}

func TestGenerateStoresDigestNotToken(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, userID, "access-1")
	require.NoError(t, err)

	raw := store.values[store.keys.Session("access-1")]
	assert.NotContains(t, raw, token)
	var rec record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, userID, rec.UserID)
	assert.Equal(t, digest(token), rec.TokenHash)
	assert.True(t, store.sets[store.keys.UserSessions(userID.String())]["access-1"])

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRotateReplacesSession(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()
	token, err := manager.Generate(ctx, userID, "access-1")
	require.NoError(t, err)

	rotation, err := manager.Rotate(ctx, "access-1", token)
	require.NoError(t, err)
	assert.Equal(t, userID, rotation.UserID)
	assert.NotEqual(t, "access-1", rotation.AccessID)
	assert.NotEqual(t, token, rotation.RefreshToken)

	ok, _ := manager.HasSession(ctx, "access-1")
	assert.False(t, ok)
	ok, _ = manager.HasSession(ctx, rotation.AccessID)
	assert.True(t, ok)
	index := store.sets[store.keys.UserSessions(userID.String())]
	assert.False(t, index["access-1"])
	assert.True(t, index[rotation.AccessID])

	_, err = manager.Rotate(ctx, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateRejectsWrongToken(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	_, err := manager.Generate(ctx, uuid.New(), "access-1")
	require.NoError(t, err)

	_, err = manager.Rotate(ctx, "access-1", "not-the-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	ok, _ := manager.HasSession(ctx, "access-1")
	assert.True(t, ok, "a failed rotation must not end the session")

	_, err = manager.Rotate(ctx, "", "x")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeAllEndsEverySessionOfUser(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()
	for _, id := range []string{"a", "b", "c"} {
		_, err := manager.Generate(ctx, userID, id)
		require.NoError(t, err)
	}
	_, err := manager.Generate(ctx, other, "z")
	require.NoError(t, err)

	n, err := manager.RevokeAll(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, id := range []string{"a", "b", "c"} {
		ok, _ := manager.HasSession(ctx, id)
		assert.False(t, ok, id)
	}
	ok, _ := manager.HasSession(ctx, "z")
	assert.True(t, ok)
}

func TestRevokeUnknownSessionIsNoop(t *testing.T) {
	manager, _ := newTestManager(t)
	assert.NoError(t, manager.Revoke(context.Background(), "missing"))
	assert.Error(t, manager.Revoke(context.Background(), " "))
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	_, err := newManager(newMemoryStore(), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	assert.Error(t, err)
	_, err = NewManager(nil, config.JWTConfig{})
	assert.Error(t, err)
}
