package memstore

import (
	"sync"

	"github.com/jrsteele09/go-auth-session/credentials"
)

var _ credentials.Store = (*InMemoryStore)(nil)

// InMemoryStore keeps the token pair for the life of the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func New() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]string),
	}
}

func (s *InMemoryStore) AccessToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[credentials.AccessTokenKey], nil
}

func (s *InMemoryStore) RefreshToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[credentials.RefreshTokenKey], nil
}

func (s *InMemoryStore) SetTokens(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[credentials.AccessTokenKey] = accessToken
	if refreshToken == "" {
		delete(s.entries, credentials.RefreshTokenKey)
	} else {
		s.entries[credentials.RefreshTokenKey] = refreshToken
	}
	return nil
}

func (s *InMemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, credentials.AccessTokenKey)
	delete(s.entries, credentials.RefreshTokenKey)
	return nil
}

// Len reports how many entries are held.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
