// Package prefs owns the persisted UI preferences: theme, language, and
// the one-time welcome flag. Like the credential set these are plain
// string keys with no schema versioning, so absent or legacy values read
// as zero values.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/partsdesk/partsdesk-go/internal/store"
)

// Preferences is the persisted UI preference state.
type Preferences struct {
	Theme          string `json:"theme"`
	Language       string `json:"language"`
	HasSeenWelcome bool   `json:"has_seen_welcome"`
}

// Store wraps a store.Driver with preference semantics.
type Store struct {
	driver store.Driver
}

// New creates a preference store over the given driver.
func New(driver store.Driver) *Store {
	return &Store{driver: driver}
}

// Load returns the current preferences. Absent keys yield zero values; a
// corrupt welcome flag reads as false.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	var p Preferences

	theme, err := s.get(ctx, store.KeyTheme)
	if err != nil {
		return Preferences{}, err
	}
	p.Theme = theme

	lang, err := s.get(ctx, store.KeyLanguage)
	if err != nil {
		return Preferences{}, err
	}
	p.Language = lang

	seen, err := s.get(ctx, store.KeyHasSeenWelcome)
	if err != nil {
		return Preferences{}, err
	}
	p.HasSeenWelcome, _ = strconv.ParseBool(seen)

	return p, nil
}

// Save persists all preference keys, overwriting previous values.
func (s *Store) Save(ctx context.Context, p Preferences) error {
	if err := s.driver.Set(ctx, store.KeyTheme, p.Theme); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	if err := s.driver.Set(ctx, store.KeyLanguage, p.Language); err != nil {
		return fmt.Errorf("persist language: %w", err)
	}
	if err := s.driver.Set(ctx, store.KeyHasSeenWelcome, strconv.FormatBool(p.HasSeenWelcome)); err != nil {
		return fmt.Errorf("persist welcome flag: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.driver.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
