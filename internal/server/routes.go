package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes builds the bridge router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.authMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Post("/session/tenant", s.handleSwitchTenant)
		r.Post("/session/logout", s.handleLogout)
		r.Post("/refresh", s.handleRefresh)

		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handlePutPreferences)

		r.Get("/orders", s.handleOrders)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/invoices", s.handleInvoices)
		r.Get("/inventory", s.handleInventory)
	})

	return r
}
