package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but the file is missing or invalid, loading fails.
	ConfigPath string

	// ModeFlag is the --mode flag value (overrides config file mode).
	ModeFlag string

	// FlagOverrides are CLI flag values that override config file values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	APIOrigin     *string
	DevToken      *string
	ListenAddr    *string
	StoreDriver   *string
	StoreDataDir  *string
	CacheDriver   *string
	PollInterval  *int
	LoggingLevel  *string
	AdminUsername *string
	AdminPassword *string
}

// fileConfig mirrors Config but with pointer sections to detect presence.
type fileConfig struct {
	Mode string `toml:"mode"`

	API     *APIConfig     `toml:"api"`
	Poll    *PollConfig    `toml:"poll"`
	Store   *StoreConfig   `toml:"store"`
	Cache   *CacheConfig   `toml:"cache"`
	Bridge  *BridgeConfig  `toml:"bridge"`
	Logging *LoggingConfig `toml:"logging"`
}

// Load loads configuration with the following precedence:
//  1. Determine effective mode: --mode flag > mode in config file > default (prod)
//  2. Start from mode preset defaults
//  3. Overlay TOML config file values
//  4. Overlay CLI flags
//  5. Validate
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid
// TOML, Load returns an error (fail fast). Unknown TOML keys produce a
// warning but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var fc fileConfig

	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	modeStr := "prod"
	if fc.Mode != "" {
		modeStr = fc.Mode
	}
	if opts.ModeFlag != "" {
		modeStr = opts.ModeFlag
	}

	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	cfg := presetForMode(mode)

	if opts.ConfigPath != "" {
		overlayFileConfig(cfg, &fc)
	}

	overlayFlags(cfg, opts.FlagOverrides)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func presetForMode(mode Mode) *Config {
	switch mode {
	case ModeDev:
		return DevConfig()
	default:
		return ProdConfig()
	}
}

// ProdConfig returns production-safe defaults.
func ProdConfig() *Config {
	return &Config{
		Mode: string(ModeProd),
		API: APIConfig{
			TokenChain:         []string{TokenSourceStore, TokenSourceLegacy},
			TimeoutMS:          10000,
			ConnectTimeoutMS:   2000,
			MaxResponseBytes:   4194304,
			InsecureSkipVerify: false,
		},
		Poll: PollConfig{
			IntervalSeconds:      300,
			MembershipTTLSeconds: 900,
		},
		Store: StoreConfig{
			Driver:  "json",
			DataDir: ".partsdesk",
		},
		Cache: CacheConfig{
			Driver: "memory",
		},
		Bridge: BridgeConfig{
			ListenAddr: "127.0.0.1:8095",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DevConfig returns development defaults. The dev fallback token source is
// part of the chain only in this mode.
func DevConfig() *Config {
	cfg := ProdConfig()
	cfg.Mode = string(ModeDev)
	cfg.API.TokenChain = []string{TokenSourceStore, TokenSourceLegacy, TokenSourceDev}
	cfg.API.InsecureSkipVerify = true
	cfg.Poll.IntervalSeconds = 30
	cfg.Logging.Level = "debug"
	return cfg
}

// overlayFileConfig applies TOML file values onto cfg.
func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if fc.API != nil {
		if fc.API.Origin != "" {
			cfg.API.Origin = fc.API.Origin
		}
		if fc.API.DevToken != "" {
			cfg.API.DevToken = fc.API.DevToken
		}
		if len(fc.API.TokenChain) > 0 {
			cfg.API.TokenChain = fc.API.TokenChain
		}
		if fc.API.TimeoutMS != 0 {
			cfg.API.TimeoutMS = fc.API.TimeoutMS
		}
		if fc.API.ConnectTimeoutMS != 0 {
			cfg.API.ConnectTimeoutMS = fc.API.ConnectTimeoutMS
		}
		if fc.API.MaxResponseBytes != 0 {
			cfg.API.MaxResponseBytes = fc.API.MaxResponseBytes
		}
		// InsecureSkipVerify is a bool, overlay when section present
		cfg.API.InsecureSkipVerify = fc.API.InsecureSkipVerify
	}

	if fc.Poll != nil {
		if fc.Poll.IntervalSeconds != 0 {
			cfg.Poll.IntervalSeconds = fc.Poll.IntervalSeconds
		}
		if fc.Poll.MembershipTTLSeconds != 0 {
			cfg.Poll.MembershipTTLSeconds = fc.Poll.MembershipTTLSeconds
		}
	}

	if fc.Store != nil {
		if fc.Store.Driver != "" {
			cfg.Store.Driver = fc.Store.Driver
		}
		if fc.Store.DataDir != "" {
			cfg.Store.DataDir = fc.Store.DataDir
		}
	}

	if fc.Cache != nil {
		if fc.Cache.Driver != "" {
			cfg.Cache.Driver = fc.Cache.Driver
		}
		if len(fc.Cache.Drivers) > 0 {
			cfg.Cache.Drivers = fc.Cache.Drivers
		}
	}

	if fc.Bridge != nil {
		if fc.Bridge.ListenAddr != "" {
			cfg.Bridge.ListenAddr = fc.Bridge.ListenAddr
		}
		if fc.Bridge.Admin.Username != "" {
			cfg.Bridge.Admin.Username = fc.Bridge.Admin.Username
			cfg.Bridge.Admin.Password = fc.Bridge.Admin.Password
		}
	}

	if fc.Logging != nil {
		if fc.Logging.Level != "" {
			cfg.Logging.Level = fc.Logging.Level
		}
	}
}

// overlayFlags applies CLI flag values onto cfg.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.APIOrigin != nil && *f.APIOrigin != "" {
		cfg.API.Origin = *f.APIOrigin
	}
	if f.DevToken != nil && *f.DevToken != "" {
		cfg.API.DevToken = *f.DevToken
	}
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.Bridge.ListenAddr = *f.ListenAddr
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.StoreDataDir != nil && *f.StoreDataDir != "" {
		cfg.Store.DataDir = *f.StoreDataDir
	}
	if f.CacheDriver != nil && *f.CacheDriver != "" {
		cfg.Cache.Driver = *f.CacheDriver
	}
	if f.PollInterval != nil && *f.PollInterval > 0 {
		cfg.Poll.IntervalSeconds = *f.PollInterval
	}
	if f.LoggingLevel != nil && *f.LoggingLevel != "" {
		cfg.Logging.Level = *f.LoggingLevel
	}
	if f.AdminUsername != nil && *f.AdminUsername != "" {
		cfg.Bridge.Admin.Username = *f.AdminUsername
	}
	if f.AdminPassword != nil && *f.AdminPassword != "" {
		cfg.Bridge.Admin.Password = *f.AdminPassword
	}
}

// Validate checks enum-like fields and required values.
// An empty or relative API origin is a hard startup error so that
// misconfiguration is observable at boot rather than mid-session.
func Validate(cfg *Config) error {
	if err := ValidateOrigin(cfg.API.Origin); err != nil {
		return err
	}

	for _, src := range cfg.API.TokenChain {
		switch src {
		case TokenSourceStore, TokenSourceLegacy, TokenSourceDev:
		default:
			return fmt.Errorf("invalid api.token_chain entry %q: must be one of store, legacy, dev", src)
		}
	}

	if containsSource(cfg.API.TokenChain, TokenSourceDev) && cfg.Mode != string(ModeDev) {
		return fmt.Errorf("api.token_chain includes %q but mode is %q: the dev fallback token is dev-mode only", TokenSourceDev, cfg.Mode)
	}

	switch cfg.Store.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("invalid store.driver %q: must be one of json, sqlite", cfg.Store.Driver)
	}

	switch cfg.Cache.Driver {
	case "", "memory", "valkey":
	default:
		return fmt.Errorf("invalid cache.driver %q: must be one of memory, valkey", cfg.Cache.Driver)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}

	if cfg.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be positive, got %d", cfg.Poll.IntervalSeconds)
	}

	if cfg.Bridge.Admin.Username != "" && cfg.Bridge.Admin.Password == "" {
		return fmt.Errorf("bridge.admin.password is required when bridge.admin.username is set")
	}

	return nil
}

func containsSource(chain []string, src string) bool {
	for _, s := range chain {
		if s == src {
			return true
		}
	}
	return false
}
