// Package session выдаёт, проверяет и отзывает серверные сессии.
// Идентификатор сессии передаётся клиенту в виде "токен.подпись".
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mmeshcher/yarnshop/internal/auth"
	"github.com/mmeshcher/yarnshop/internal/model"
)

// DefaultTTL задаёт срок жизни сессии по умолчанию.
const DefaultTTL = 72 * time.Hour

const tokenBytes = 24

// Repository описывает хранилище записей сессий.
type Repository interface {
	CreateSession(ctx context.Context, s model.Session, now time.Time) error
	FindSession(ctx context.Context, token string) (model.Session, bool)
	DeleteSession(ctx context.Context, token string) error
}

// Manager управляет сессиями пользователей.
type Manager struct {
	repo   Repository
	signer *auth.Signer
	ttl    time.Duration
	now    func() time.Time
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock задаёт источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager создаёт менеджер сессий. Неположительный ttl заменяется DefaultTTL.
func NewManager(repo Repository, signer *auth.Signer, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		repo:   repo,
		signer: signer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL возвращает срок жизни выдаваемых сессий.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create сохраняет новую сессию и возвращает подписанное значение cookie.
func (m *Manager) Create(ctx context.Context, userID int64, role model.Role) (string, model.Session, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", model.Session{}, fmt.Errorf("generate session token: %w", err)
	}

	now := m.now()
	s := model.Session{
		Token:     hex.EncodeToString(raw),
		UserID:    userID,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.repo.CreateSession(ctx, s, now); err != nil {
		return "", model.Session{}, fmt.Errorf("save session: %w", err)
	}

	return m.signer.Seal(s.Token), s, nil
}

// Get возвращает действующую сессию по значению cookie. При неверной подписи
// хранилище не запрашивается. Срок действия при обращении не продлевается.
func (m *Manager) Get(ctx context.Context, cookieValue string) (model.Session, bool) {
	token, ok := m.signer.Open(cookieValue)
	if !ok {
		return model.Session{}, false
	}

	s, ok := m.repo.FindSession(ctx, token)
	if !ok || !s.Active(m.now()) {
		return model.Session{}, false
	}
	return s, true
}

// Destroy удаляет сессию независимо от срока её действия. Повторный вызов
// и неизвестная сессия ошибкой не считаются.
func (m *Manager) Destroy(ctx context.Context, cookieValue string) error {
	token, ok := m.signer.Open(cookieValue)
	if !ok {
		return nil
	}
	return m.repo.DeleteSession(ctx, token)
}
