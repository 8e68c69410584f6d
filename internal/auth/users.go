// Package auth issues and verifies the bearer tokens gating the pipelines.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
)

// UserStore verifies login credentials. Constructed explicitly and injected;
// there is no process-wide credential state.
type UserStore interface {
	Verify(username, password string) error
}

// InMemoryUserStore holds bcrypt password hashes keyed by username.
type InMemoryUserStore struct {
	hashes map[string]string
}

// NewInMemoryUserStore builds a store from username -> bcrypt-hash pairs.
func NewInMemoryUserStore(hashes map[string]string) *InMemoryUserStore {
	copied := make(map[string]string, len(hashes))
	for name, hash := range hashes {
		copied[name] = hash
	}
	return &InMemoryUserStore{hashes: copied}
}

// Verify compares password against the stored bcrypt hash for username.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *InMemoryUserStore) Verify(username, password string) error {
	hash, ok := s.hashes[username]
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for seeding user stores.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
