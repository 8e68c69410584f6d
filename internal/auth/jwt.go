package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "docqa"

// Service authenticates users and mints HS256 bearer tokens for them.
type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
}

// NewService wires a user store to a signing secret. ttl defaults to 8 hours.
func NewService(users UserStore, secret []byte, ttl time.Duration) *Service {
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &Service{users: users, secret: secret, ttl: ttl}
}

// Authenticate verifies the credentials and returns a signed token with its
// expiry time.
func (s *Service) Authenticate(username, password string) (string, time.Time, error) {
	if err := s.users.Verify(username, password); err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return token, expiresAt, nil
}

// Validate checks the token signature, expiry and issuer, returning the
// authenticated username.
func (s *Service) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Issuer != issuer || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
