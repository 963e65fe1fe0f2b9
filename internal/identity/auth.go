// Package identity handles local bridge admin authentication.
package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPassword is returned when a password does not match.
var ErrInvalidPassword = errors.New("invalid password")

// Admin guards the local bridge with a single username/password pair.
// The password is hashed at construction; the plaintext is not retained.
type Admin struct {
	username string
	hash     string
}

// NewAdmin creates a bridge admin. Cost below bcrypt.MinCost falls back
// to the default.
func NewAdmin(username, password string, cost int) (*Admin, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}
	return &Admin{username: username, hash: string(hash)}, nil
}

// Username returns the admin username.
func (a *Admin) Username() string { return a.username }

// Verify checks a username/password pair against the admin credentials.
func (a *Admin) Verify(username, password string) error {
	if username != a.username {
		return ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.hash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}
