package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/yarnshop/internal/auth"
	"github.com/mmeshcher/yarnshop/internal/model"
)

type memRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	finds    int
}

func newMemRepo() *memRepo {
	return &memRepo{sessions: make(map[string]model.Session)}
}

func (r *memRepo) CreateSession(ctx context.Context, s model.Session, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = s
	return nil
}

func (r *memRepo) FindSession(ctx context.Context, token string) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	s, ok := r.sessions[token]
	return s, ok
}

func (r *memRepo) DeleteSession(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T) (*Manager, *memRepo, *fakeClock) {
	t.Helper()

	repo := newMemRepo()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := NewManager(repo, auth.NewSigner("test-secret"), time.Hour, WithClock(clock.Now))
	return m, repo, clock
}

func TestCreateAndGet(t *testing.T) {
	m, _, clock := newTestManager(t)
	ctx := context.Background()

	cookie, s, err := m.Create(ctx, 7, model.RoleUser)
	require.NoError(t, err)

	token, _, ok := strings.Cut(cookie, ".")
	require.True(t, ok)
	assert.Equal(t, s.Token, token)
	assert.Len(t, token, 48)
	assert.Equal(t, clock.now, s.IssuedAt)
	assert.Equal(t, clock.now.Add(time.Hour), s.ExpiresAt)

	got, ok := m.Get(ctx, cookie)
	require.True(t, ok)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, model.RoleUser, got.Role)
}

func TestGet_TamperedSignatureSkipsStorage(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	_, s, err := m.Create(ctx, 7, model.RoleUser)
	require.NoError(t, err)

	forged := s.Token + "." + strings.Repeat("a", 64)
	_, ok := m.Get(ctx, forged)
	assert.False(t, ok)
	assert.Zero(t, repo.finds)

	_, ok = m.Get(ctx, s.Token)
	assert.False(t, ok)
	assert.Zero(t, repo.finds)
}

func TestGet_ExpiredAndNotExtended(t *testing.T) {
	m, repo, clock := newTestManager(t)
	ctx := context.Background()

	cookie, s, err := m.Create(ctx, 1, model.RoleAdmin)
	require.NoError(t, err)

	clock.now = clock.now.Add(59 * time.Minute)
	_, ok := m.Get(ctx, cookie)
	require.True(t, ok)
	assert.Equal(t, s.ExpiresAt, repo.sessions[s.Token].ExpiresAt)

	clock.now = s.ExpiresAt
	_, ok = m.Get(ctx, cookie)
	assert.False(t, ok)
}

func TestDestroy_Idempotent(t *testing.T) {
	m, repo, clock := newTestManager(t)
	ctx := context.Background()

	cookie, _, err := m.Create(ctx, 1, model.RoleUser)
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Hour)
	require.NoError(t, m.Destroy(ctx, cookie))
	require.NoError(t, m.Destroy(ctx, cookie))
	require.NoError(t, m.Destroy(ctx, "garbage"))
	assert.Empty(t, repo.sessions)

	_, ok := m.Get(ctx, cookie)
	assert.False(t, ok)
}

func TestNewManager_DefaultTTL(t *testing.T) {
	m := NewManager(newMemRepo(), auth.NewSigner("s"), 0)
	assert.Equal(t, DefaultTTL, m.TTL())
}
