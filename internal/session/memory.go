package session

import (
	"context"
	"sync"

	"github.com/eduvoyage/admin-gateway/internal/models"
)

// MemoryStore keeps the session in process memory. It is the default when no
// Redis session sharing is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	user  *models.AdminUser
	token string
}

// NewMemoryStore builds an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

func (s *MemoryStore) CurrentUser(ctx context.Context) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, ErrNoSession
	}
	user := *s.user
	return &user, nil
}

func (s *MemoryStore) SaveLogin(ctx context.Context, user models.AdminUser, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	s.token = token
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
	return nil
}
