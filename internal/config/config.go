// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Mode represents the operating mode of the daemon.
type Mode string

const (
	ModeProd Mode = "prod"
	ModeDev  Mode = "dev"
)

// ParseMode parses a mode string, returning an error for invalid values.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "":
		return ModeProd, nil
	case "dev":
		return ModeDev, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be one of prod, dev", s)
	}
}

// Token source names for APIConfig.TokenChain.
const (
	TokenSourceStore  = "store"  // token persisted by the credential store
	TokenSourceLegacy = "legacy" // legacy token key kept for migrated installs
	TokenSourceDev    = "dev"    // build-time development fallback token
)

// Config is the effective daemon configuration.
type Config struct {
	Mode string

	API     APIConfig
	Poll    PollConfig
	Store   StoreConfig
	Cache   CacheConfig
	Bridge  BridgeConfig
	Logging LoggingConfig
}

// APIConfig configures access to the remote brokerage API.
type APIConfig struct {
	// Origin is the absolute base origin of the brokerage API,
	// e.g. "https://api.example.com". Required.
	Origin string `toml:"origin"`

	// DevToken is a development fallback bearer token. It is only
	// consulted when "dev" appears in TokenChain.
	DevToken string `toml:"dev_token"`

	// TokenChain is the ordered list of token sources consulted when
	// issuing a request. The first source that yields a token wins.
	TokenChain []string `toml:"token_chain"`

	// TimeoutMS bounds a whole outbound request.
	TimeoutMS int `toml:"timeout_ms"`

	// ConnectTimeoutMS bounds connection establishment.
	ConnectTimeoutMS int `toml:"connect_timeout_ms"`

	// MaxResponseBytes caps response body reads.
	MaxResponseBytes int64 `toml:"max_response_bytes"`

	// InsecureSkipVerify disables TLS verification (dev only).
	InsecureSkipVerify bool `toml:"insecure_skip_verify"`
}

// PollConfig configures the background refresh cycle.
type PollConfig struct {
	// IntervalSeconds is the background refresh interval.
	IntervalSeconds int `toml:"interval_seconds"`

	// MembershipTTLSeconds is the TTL for the cached membership list.
	MembershipTTLSeconds int `toml:"membership_ttl_seconds"`
}

// StoreConfig selects the persistence driver for session keys.
type StoreConfig struct {
	// Driver is the driver name: json or sqlite.
	Driver string `toml:"driver"`

	// DataDir is the directory for data files (json files, sqlite db).
	DataDir string `toml:"data_dir"`
}

// CacheConfig selects the cache driver.
type CacheConfig struct {
	// Driver is the cache driver name: memory or valkey.
	Driver string `toml:"driver"`

	// Drivers holds per-driver option maps keyed by driver name.
	Drivers map[string]any `toml:"drivers"`
}

// BridgeConfig configures the local HTTP bridge the UI shell talks to.
type BridgeConfig struct {
	// ListenAddr is the bridge listen address. Loopback by default.
	ListenAddr string `toml:"listen_addr"`

	// Admin holds optional basic-auth credentials for the bridge.
	Admin AdminConfig `toml:"admin"`
}

// AdminConfig holds optional bridge admin credentials.
// When Username is empty the bridge is unauthenticated.
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// ValidateOrigin checks that origin is an absolute http(s) URL with a host.
// A relative path or empty string is a startup error, never a silent no-op.
func ValidateOrigin(origin string) error {
	if strings.TrimSpace(origin) == "" {
		return fmt.Errorf("api.origin is required")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("api.origin %q is not a valid URL: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.origin %q must use http or https", origin)
	}
	if u.Host == "" {
		return fmt.Errorf("api.origin %q must be an absolute origin with a host", origin)
	}
	return nil
}

// NormalizeOrigin trims a trailing slash and lowercases scheme and host.
// It does not strip default ports.
func NormalizeOrigin(origin string) (string, error) {
	if err := ValidateOrigin(origin); err != nil {
		return "", err
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
