package repositories

import (
	"context"
	"sync"

	"setoran-pa/internal/core/domain"
)

// memoryTokenStore keeps credentials for the lifetime of the process
type memoryTokenStore struct {
	mu    sync.RWMutex
	creds *domain.Credentials
}

// NewMemoryTokenStore creates an in-process token store
func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{}
}

func (s *memoryTokenStore) Get(ctx context.Context) (domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	return *s.creds, nil
}

func (s *memoryTokenStore) Save(ctx context.Context, creds domain.Credentials) error {
	if !creds.Complete() {
		return ErrPartialCredentials
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &creds
	return nil
}

func (s *memoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

func (s *memoryTokenStore) Ping(ctx context.Context) error {
	return nil
}
