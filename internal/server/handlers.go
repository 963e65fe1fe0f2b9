package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/partsdesk/partsdesk-go/internal/api"
	"github.com/partsdesk/partsdesk-go/internal/brokerage"
	"github.com/partsdesk/partsdesk-go/internal/brokerage/lifecycle"
	"github.com/partsdesk/partsdesk-go/internal/poll"
	"github.com/partsdesk/partsdesk-go/internal/prefs"
	"github.com/partsdesk/partsdesk-go/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session())
}

func (s *Server) handleSwitchTenant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID int64 `json:"tenant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}
	if body.TenantID == 0 {
		api.WriteBadRequest(w, api.ReasonMissingField, "tenant_id is required")
		return
	}

	sess, err := s.deps.Resolver.SwitchTenant(r.Context(), body.TenantID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownTenant) {
			api.WriteBadRequest(w, api.ReasonUnknownTenant, "not a member of that tenant")
			return
		}
		// The selection may already be persisted; show the post-switch
		// state (no active tenant) rather than the stale one.
		if sess != nil {
			s.setSession(sess)
		}
		api.WriteInternalError(w, "tenant switch failed")
		return
	}

	s.setSession(sess)
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Resolver.Logout(r.Context()); err != nil {
		api.WriteInternalError(w, "logout failed")
		return
	}
	s.setSession(&session.Session{})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.deps.Registry.RefreshAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Prefs == nil {
		api.WriteNotFound(w, "preferences not configured")
		return
	}
	p, err := s.deps.Prefs.Load(r.Context())
	if err != nil {
		api.WriteInternalError(w, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Prefs == nil {
		api.WriteNotFound(w, "preferences not configured")
		return
	}
	var p prefs.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid request body")
		return
	}
	if err := s.deps.Prefs.Save(r.Context(), p); err != nil {
		api.WriteInternalError(w, "failed to persist preferences")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// orderView decorates an order with its derived lifecycle state so views
// pattern-match on the stage instead of the raw status string.
type orderView struct {
	brokerage.Order
	Stage          lifecycle.Stage    `json:"stage"`
	StageLabel     string             `json:"stage_label"`
	CompletedSteps []lifecycle.Step   `json:"completed_steps"`
	AllowedActions []lifecycle.Action `json:"allowed_actions"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orders == nil {
		api.WriteNotFound(w, "orders source not configured")
		return
	}
	snap := s.deps.Orders.Snapshot()

	views := make([]orderView, 0, len(snap.Data))
	for i := range snap.Data {
		o := snap.Data[i]
		info := lifecycle.Map(o.RawStatus)
		views = append(views, orderView{
			Order:          o,
			Stage:          info.Stage,
			StageLabel:     info.Label,
			CompletedSteps: lifecycle.CompletedSteps(&o),
			AllowedActions: lifecycle.AllowedActions(info.Stage),
		})
	}

	writeJSON(w, http.StatusOK, poll.State[[]orderView]{
		Data:        views,
		Loading:     snap.Loading,
		Err:         snap.Err,
		LastUpdated: snap.LastUpdated,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dashboard == nil {
		api.WriteNotFound(w, "dashboard source not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Dashboard.Snapshot())
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Invoices == nil {
		api.WriteNotFound(w, "invoices source not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Invoices.Snapshot())
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Inventory == nil {
		api.WriteNotFound(w, "inventory source not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Inventory.Snapshot())
}
