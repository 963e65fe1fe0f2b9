// Package server provides the local HTTP bridge the UI shell reads
// snapshots from. It binds to loopback by default and never talks to the
// brokerage API itself; it only exposes what the pollers and the session
// resolver already hold.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/partsdesk/partsdesk-go/internal/brokerage"
	"github.com/partsdesk/partsdesk-go/internal/config"
	"github.com/partsdesk/partsdesk-go/internal/identity"
	"github.com/partsdesk/partsdesk-go/internal/logutil"
	"github.com/partsdesk/partsdesk-go/internal/poll"
	"github.com/partsdesk/partsdesk-go/internal/prefs"
	"github.com/partsdesk/partsdesk-go/internal/session"
)

// ErrMissingDep is returned when a required dependency is absent.
var ErrMissingDep = errors.New("missing required dependency")

// Deps holds the bridge server dependencies.
type Deps struct {
	// Required
	Resolver *session.Resolver
	Registry *poll.Registry

	// Data sources surfaced to the UI shell
	Orders    *poll.Resource[[]brokerage.Order]
	Dashboard *poll.Resource[brokerage.DashboardSummary]
	Invoices  *poll.Resource[[]brokerage.Invoice]
	Inventory *poll.Resource[[]brokerage.InventoryItem]

	// Optional: persisted UI preferences
	Prefs *prefs.Store

	// Optional: bridge basic-auth guard
	Admin *identity.Admin
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *slog.Logger
	deps       *Deps

	mu      sync.RWMutex
	current *session.Session
}

// New creates a bridge server. The initial session may be empty; handlers
// treat "no active tenant" as a valid, renderable state.
func New(cfg *config.Config, logger *slog.Logger, deps *Deps, initial *session.Session) (*Server, error) {
	if deps == nil || deps.Resolver == nil || deps.Registry == nil {
		return nil, ErrMissingDep
	}
	if initial == nil {
		initial = &session.Session{}
	}

	s := &Server{
		cfg:     cfg,
		logger:  logutil.NoopIfNil(logger),
		deps:    deps,
		current: initial,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Bridge.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

// Session returns the current derived session.
func (s *Server) Session() *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Server) setSession(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
}

// ListenAndServe runs the bridge until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("bridge listening", "addr", s.cfg.Bridge.ListenAddr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the bridge.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
