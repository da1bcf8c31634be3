package auth

import (
	"context"
	"errors"
	"sync"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialStore holds the single admin passcode.
type CredentialStore interface {
	Verify(ctx context.Context, password string) (bool, error)
	Update(ctx context.Context, password string) error
}

// MemoryCredentialStore keeps an argon2id hash of the passcode in process.
// A reset only lives as long as the process.
type MemoryCredentialStore struct {
	mu   sync.RWMutex
	hash string
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

// NewMemoryCredentialStore seeds the store. An empty passcode yields a store
// that rejects every password until Update is called.
func NewMemoryCredentialStore(passcode string) (*MemoryCredentialStore, error) {
	s := &MemoryCredentialStore{}
	if passcode == "" {
		return s, nil
	}
	hash, err := HashPassword(passcode)
	if err != nil {
		return nil, err
	}
	s.hash = hash
	return s, nil
}

func (s *MemoryCredentialStore) Verify(_ context.Context, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	s.mu.RLock()
	hash := s.hash
	s.mu.RUnlock()

	return ComparePassword(password, hash)
}

func (s *MemoryCredentialStore) Update(_ context.Context, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.hash = hash
	s.mu.Unlock()
	return nil
}
