// Package store provides persistence primitives for session-scoped keys.
//
// The key space is deliberately small and flat: the device identifier, the
// auth token (plus a legacy token key kept for migrated installs), the
// selected tenant, and a handful of UI preferences. There is no schema
// versioning, so drivers must tolerate absent or legacy keys.
package store

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	ErrNotFound = errors.New("key not found")
	ErrClosed   = errors.New("store closed")
)

// Well-known keys persisted across restarts.
const (
	KeyDeviceID       = "device_id"
	KeyToken          = "token"
	KeyLegacyToken    = "auth_token" // legacy key from older installs
	KeyRefreshToken   = "refresh_token"
	KeySelectedTenant = "selected_tenant_id"
	KeyTheme          = "theme"
	KeyLanguage       = "language"
	KeyHasSeenWelcome = "has_seen_welcome"
)

// Driver defines the interface for a settings persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, load data, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (json, sqlite).
	Name() string

	// Get retrieves a value by key. Returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
