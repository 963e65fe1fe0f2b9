// Package credentials owns the persisted credential set: the device
// identifier, the auth token, and the selected tenant.
//
// All operations are synchronous and touch nothing beyond the underlying
// store driver; the package never performs network access. Interpretation
// of the stored tenant against the live membership list belongs to the
// session resolver, not here.
package credentials

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/partsdesk/partsdesk-go/internal/store"
)

// CredentialSet is the current persisted credential state. Token and
// LegacyToken are read independently; which one is used, and in which
// order, is the caller's token-chain configuration.
type CredentialSet struct {
	DeviceID    string
	Token       string // primary key, empty when unauthenticated
	LegacyToken string // legacy key, only read when enabled
	TenantID    int64  // 0 when no tenant is selected
}

// HasToken reports whether any auth token is available.
func (c CredentialSet) HasToken() bool { return c.Token != "" || c.LegacyToken != "" }

// HasTenant reports whether a tenant is selected.
func (c CredentialSet) HasTenant() bool { return c.TenantID != 0 }

// Store wraps a store.Driver with credential semantics.
type Store struct {
	driver store.Driver

	// useLegacyToken controls whether the legacy token key is read at
	// all. Ordering against the primary key is the token chain's job,
	// not an ambient fallback here.
	useLegacyToken bool
}

// Option configures a Store.
type Option func(*Store)

// WithLegacyToken enables reading the legacy token key. Kept for
// installs migrated from older versions.
func WithLegacyToken() Option {
	return func(s *Store) { s.useLegacyToken = true }
}

// New creates a credential store over the given driver.
func New(driver store.Driver, opts ...Option) *Store {
	s := &Store{driver: driver}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeviceID returns the stable device identifier, generating and persisting
// one on first call. The identifier is built from two independent random
// segments so a collision is not a practical concern, and it is immutable
// for the life of the installation: Clear never removes it.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	id, err := s.driver.Get(ctx, store.KeyDeviceID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id, err = generateDeviceID()
	if err != nil {
		return "", err
	}
	if err := s.driver.Set(ctx, store.KeyDeviceID, id); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}

// generateDeviceID builds an identifier from two independent random
// segments: a UUIDv4 and 8 bytes from crypto/rand.
func generateDeviceID() (string, error) {
	first := uuid.NewString()

	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	return first + "-" + hex.EncodeToString(b), nil
}

// Credentials returns the current credential set. The primary and legacy
// token keys are read independently so callers can order them; absent
// keys yield zero values, never errors.
func (s *Store) Credentials(ctx context.Context) (CredentialSet, error) {
	deviceID, err := s.DeviceID(ctx)
	if err != nil {
		return CredentialSet{}, err
	}

	set := CredentialSet{DeviceID: deviceID}

	token, err := s.driver.Get(ctx, store.KeyToken)
	switch {
	case err == nil:
		set.Token = token
	case errors.Is(err, store.ErrNotFound):
	default:
		return CredentialSet{}, fmt.Errorf("read token: %w", err)
	}

	if s.useLegacyToken {
		legacy, err := s.driver.Get(ctx, store.KeyLegacyToken)
		switch {
		case err == nil:
			set.LegacyToken = legacy
		case errors.Is(err, store.ErrNotFound):
		default:
			return CredentialSet{}, fmt.Errorf("read legacy token: %w", err)
		}
	}

	raw, err := s.driver.Get(ctx, store.KeySelectedTenant)
	switch {
	case err == nil:
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			// A corrupt tenant value is treated as absent.
			break
		}
		set.TenantID = id
	case errors.Is(err, store.ErrNotFound):
	default:
		return CredentialSet{}, fmt.Errorf("read selected tenant: %w", err)
	}

	return set, nil
}

// SetToken stores the auth token set by a successful login. The refresh
// token is optional; an empty value removes any stored refresh token.
func (s *Store) SetToken(ctx context.Context, token, refreshToken string) error {
	if err := s.driver.Set(ctx, store.KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if refreshToken == "" {
		return s.driver.Delete(ctx, store.KeyRefreshToken)
	}
	if err := s.driver.Set(ctx, store.KeyRefreshToken, refreshToken); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

// SetActiveTenant persists the selected tenant id.
func (s *Store) SetActiveTenant(ctx context.Context, tenantID int64) error {
	if err := s.driver.Set(ctx, store.KeySelectedTenant, strconv.FormatInt(tenantID, 10)); err != nil {
		return fmt.Errorf("persist selected tenant: %w", err)
	}
	return nil
}

// Clear removes the token, refresh token, and selected tenant. The device
// identifier survives: it identifies the installation, not the session.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{store.KeyToken, store.KeyLegacyToken, store.KeyRefreshToken, store.KeySelectedTenant} {
		if err := s.driver.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}
