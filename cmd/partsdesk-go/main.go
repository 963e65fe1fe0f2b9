// Package main is the entrypoint for the partsdesk bridge daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/partsdesk/partsdesk-go/internal/brokerage"
	"github.com/partsdesk/partsdesk-go/internal/cache"
	"github.com/partsdesk/partsdesk-go/internal/config"
	"github.com/partsdesk/partsdesk-go/internal/credentials"
	"github.com/partsdesk/partsdesk-go/internal/gateway"
	"github.com/partsdesk/partsdesk-go/internal/httpclient"
	"github.com/partsdesk/partsdesk-go/internal/identity"
	"github.com/partsdesk/partsdesk-go/internal/logutil"
	"github.com/partsdesk/partsdesk-go/internal/poll"
	"github.com/partsdesk/partsdesk-go/internal/prefs"
	"github.com/partsdesk/partsdesk-go/internal/server"
	"github.com/partsdesk/partsdesk-go/internal/session"
	"github.com/partsdesk/partsdesk-go/internal/store"

	// Register cache and store drivers
	_ "github.com/partsdesk/partsdesk-go/internal/cache/loader"
	_ "github.com/partsdesk/partsdesk-go/internal/store/loader"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	modeFlag := flag.String("mode", "", "Operating mode: prod or dev (overrides config)")
	apiOrigin := flag.String("api-origin", "", "Brokerage API origin (overrides config)")
	devToken := flag.String("dev-token", "", "Development fallback token (overrides config)")
	listenAddr := flag.String("listen", "", "Bridge listen address (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: json or sqlite (overrides config)")
	storeDataDir := flag.String("store-data-dir", "", "Store data directory (overrides config)")
	cacheDriver := flag.String("cache-driver", "", "Cache driver: memory or valkey (overrides config)")
	pollInterval := flag.Int("poll-interval", 0, "Background refresh interval in seconds (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: debug, info, warn, error (overrides config)")
	adminUsername := flag.String("admin-username", "", "Bridge admin username (overrides config)")
	adminPassword := flag.String("admin-password", "", "Bridge admin password (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		ModeFlag:   *modeFlag,
		FlagOverrides: config.FlagOverrides{
			APIOrigin:     apiOrigin,
			DevToken:      devToken,
			ListenAddr:    listenAddr,
			StoreDriver:   storeDriver,
			StoreDataDir:  storeDataDir,
			CacheDriver:   cacheDriver,
			PollInterval:  pollInterval,
			LoggingLevel:  loggingLevel,
			AdminUsername: adminUsername,
			AdminPassword: adminPassword,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logutil.ParseLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence for session keys
	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		logger.Error("failed to create store driver", "error", err)
		os.Exit(1)
	}
	if err := driver.Init(ctx); err != nil {
		logger.Error("failed to init store", "driver", driver.Name(), "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	creds := credentials.New(driver, credentials.WithLegacyToken())

	// Outbound side: bounded client + request gateway + typed API client
	gw, err := gateway.New(&cfg.API, creds, httpclient.New(&cfg.API), logger)
	if err != nil {
		logger.Error("invalid API configuration", "error", err)
		os.Exit(1)
	}
	client := brokerage.NewClient(gw)

	sessionCache, err := cache.New(cfg.Cache.Driver, driverOptions(cfg, cfg.Cache.Driver))
	if err != nil {
		logger.Error("failed to create cache", "error", err)
		os.Exit(1)
	}
	defer sessionCache.Close()

	// Polling data sources
	interval := time.Duration(cfg.Poll.IntervalSeconds) * time.Second
	registry := poll.NewRegistry()

	orders := poll.New("orders", client.ListOrders, poll.Options{
		AutoRefresh: true, Interval: interval, Logger: logger,
	})
	dashboard := poll.New("dashboard", client.Dashboard, poll.Options{
		AutoRefresh: true, Interval: interval, Logger: logger,
	})
	// Invoicing and inventory may be unconfigured for a tenant; their
	// fetch failures resolve to empty collections.
	invoices := poll.New("invoices", client.ListInvoices, poll.Options{
		AutoRefresh: true, Interval: interval, Optional: true, Logger: logger,
	})
	inventory := poll.New("inventory", client.ListInventory, poll.Options{
		AutoRefresh: true, Interval: interval, Optional: true, Logger: logger,
	})
	for _, src := range []poll.Source{orders, dashboard, invoices, inventory} {
		registry.Add(src)
	}

	resolver := session.NewResolver(client, creds, sessionCache, registry, session.Options{
		MembershipTTL: time.Duration(cfg.Poll.MembershipTTLSeconds) * time.Second,
		Logger:        logger,
	})

	// Resolve the session before the first poll so requests carry the
	// tenant header. A failed resolution is not fatal: the bridge runs
	// with no active tenant and the UI renders that state.
	sess, err := resolver.Resolve(ctx)
	if err != nil {
		logger.Warn("session resolution failed, starting without active tenant", "error", err)
	}

	orders.Start(ctx)
	dashboard.Start(ctx)
	invoices.Start(ctx)
	inventory.Start(ctx)
	defer registry.StopAll()

	var admin *identity.Admin
	if cfg.Bridge.Admin.Username != "" {
		admin, err = identity.NewAdmin(cfg.Bridge.Admin.Username, cfg.Bridge.Admin.Password, 0)
		if err != nil {
			logger.Error("failed to set up bridge admin", "error", err)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger, &server.Deps{
		Resolver:  resolver,
		Registry:  registry,
		Orders:    orders,
		Dashboard: dashboard,
		Invoices:  invoices,
		Inventory: inventory,
		Prefs:     prefs.New(driver),
		Admin:     admin,
	}, sess)
	if err != nil {
		logger.Error("failed to create bridge server", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("bridge server failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// driverOptions extracts the option map for the selected cache driver.
func driverOptions(cfg *config.Config, driver string) map[string]any {
	if cfg.Cache.Drivers == nil {
		return nil
	}
	opts, _ := cfg.Cache.Drivers[driver].(map[string]any)
	return opts
}
