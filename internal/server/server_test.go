package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/partsdesk/partsdesk-go/internal/api"
	"github.com/partsdesk/partsdesk-go/internal/brokerage"
	"github.com/partsdesk/partsdesk-go/internal/config"
	"github.com/partsdesk/partsdesk-go/internal/credentials"
	"github.com/partsdesk/partsdesk-go/internal/identity"
	"github.com/partsdesk/partsdesk-go/internal/poll"
	"github.com/partsdesk/partsdesk-go/internal/prefs"
	"github.com/partsdesk/partsdesk-go/internal/server"
	"github.com/partsdesk/partsdesk-go/internal/session"
	"github.com/partsdesk/partsdesk-go/internal/store"
)

type memDriver struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemDriver() *memDriver { return &memDriver{data: make(map[string]string)} }

func (m *memDriver) Init(ctx context.Context) error { return nil }
func (m *memDriver) Close() error                   { return nil }
func (m *memDriver) Name() string                   { return "mem" }

func (m *memDriver) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memDriver) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memDriver) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeAPI struct {
	me *brokerage.Me
}

func (f *fakeAPI) Me(ctx context.Context) (*brokerage.Me, error) { return f.me, nil }
func (f *fakeAPI) Logout(ctx context.Context) error              { return nil }

type bridgeFixture struct {
	srv        *server.Server
	ts         *httptest.Server
	orderCalls *atomic.Int32
}

func newBridge(t *testing.T, admin *identity.Admin) *bridgeFixture {
	t.Helper()
	ctx := context.Background()

	me := &brokerage.Me{
		Identity: brokerage.Identity{ID: 1, Name: "Sam"},
		Memberships: []brokerage.Membership{
			{ID: 10, TenantID: 1, TenantName: "Autoteile Nord", Role: brokerage.RoleOwner},
			{ID: 11, TenantID: 2, TenantName: "Autoteile Süd", Role: brokerage.RoleMember},
		},
	}

	creds := credentials.New(newMemDriver())
	registry := poll.NewRegistry()
	resolver := session.NewResolver(&fakeAPI{me: me}, creds, nil, registry, session.Options{})

	var orderCalls atomic.Int32
	orders := poll.New("orders", func(ctx context.Context) ([]brokerage.Order, error) {
		orderCalls.Add(1)
		return []brokerage.Order{
			{ID: 1, RawStatus: "lookup_oem", Part: "brake disc", OEM: "1K0-615-301"},
			{ID: 2, RawStatus: "negotiating_v2", Part: "alternator"},
		}, nil
	}, poll.Options{})
	dashboard := poll.New("dashboard", func(ctx context.Context) (brokerage.DashboardSummary, error) {
		return brokerage.DashboardSummary{OpenOrders: 3, Currency: "EUR"}, nil
	}, poll.Options{})
	registry.Add(orders)
	registry.Add(dashboard)
	orders.Refresh(ctx, false)
	dashboard.Refresh(ctx, false)

	sess, err := resolver.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	cfg := config.ProdConfig()
	cfg.API.Origin = "https://api.example.com"

	srv, err := server.New(cfg, nil, &server.Deps{
		Resolver:  resolver,
		Registry:  registry,
		Orders:    orders,
		Dashboard: dashboard,
		Prefs:     prefs.New(newMemDriver()),
		Admin:     admin,
	}, sess)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	return &bridgeFixture{srv: srv, ts: ts, orderCalls: &orderCalls}
}

func decodeErrorEnvelope(t *testing.T, resp *http.Response) api.ErrorEnvelope {
	t.Helper()
	var envelope api.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return envelope
}

func TestHealthz(t *testing.T) {
	f := newBridge(t, nil)

	resp, err := http.Get(f.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("every response should carry a request id")
	}
}

func TestGetSession(t *testing.T) {
	f := newBridge(t, nil)

	resp, err := http.Get(f.ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET /api/session error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var sess session.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if sess.ActiveTenant == nil || sess.ActiveTenant.TenantID != 1 {
		t.Errorf("ActiveTenant = %+v, want first membership", sess.ActiveTenant)
	}
	if len(sess.Memberships) != 2 {
		t.Errorf("Memberships = %d, want 2", len(sess.Memberships))
	}
}

func TestSwitchTenant(t *testing.T) {
	f := newBridge(t, nil)

	resp, err := http.Post(f.ts.URL+"/api/session/tenant", "application/json",
		strings.NewReader(`{"tenant_id":2}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var sess session.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if sess.ActiveTenant == nil || sess.ActiveTenant.TenantID != 2 {
		t.Errorf("ActiveTenant = %+v, want tenant 2", sess.ActiveTenant)
	}

	// The switch resets registered sources, so the orders fetch re-ran
	if f.orderCalls.Load() < 2 {
		t.Errorf("orders fetch ran %d times, want a reset-triggered refetch", f.orderCalls.Load())
	}
}

func TestSwitchTenant_Validation(t *testing.T) {
	f := newBridge(t, nil)

	tests := []struct {
		name       string
		body       string
		wantReason string
	}{
		{"unknown tenant", `{"tenant_id":99}`, api.ReasonUnknownTenant},
		{"missing tenant id", `{}`, api.ReasonMissingField},
		{"malformed body", `{`, api.ReasonBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(f.ts.URL+"/api/session/tenant", "application/json",
				strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			envelope := decodeErrorEnvelope(t, resp)
			if envelope.Error.ReasonCode != tt.wantReason {
				t.Errorf("reason = %q, want %q", envelope.Error.ReasonCode, tt.wantReason)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	f := newBridge(t, nil)

	resp, err := http.Post(f.ts.URL+"/api/session/logout", "application/json", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	// The bridge session is blanked out
	sessResp, err := http.Get(f.ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET /api/session error = %v", err)
	}
	defer sessResp.Body.Close()
	var sess session.Session
	if err := json.NewDecoder(sessResp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if sess.ActiveTenant != nil {
		t.Errorf("ActiveTenant = %+v after logout, want nil", sess.ActiveTenant)
	}
}

func TestRefresh(t *testing.T) {
	f := newBridge(t, nil)
	before := f.orderCalls.Load()

	resp, err := http.Post(f.ts.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if f.orderCalls.Load() != before+1 {
		t.Errorf("orders fetch ran %d times, want %d", f.orderCalls.Load(), before+1)
	}
}

func TestGetOrders_Decorated(t *testing.T) {
	f := newBridge(t, nil)

	resp, err := http.Get(f.ts.URL + "/api/orders")
	if err != nil {
		t.Fatalf("GET /api/orders error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var state struct {
		Data []struct {
			ID             int64    `json:"id"`
			Status         string   `json:"status"`
			Stage          string   `json:"stage"`
			StageLabel     string   `json:"stage_label"`
			CompletedSteps []string `json:"completed_steps"`
			AllowedActions []string `json:"allowed_actions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(state.Data) != 2 {
		t.Fatalf("got %d orders, want 2", len(state.Data))
	}

	first := state.Data[0]
	if first.Stage != "oem_lookup" {
		t.Errorf("stage = %q, want oem_lookup", first.Stage)
	}
	if first.StageLabel != "OEM lookup" {
		t.Errorf("stage_label = %q, want OEM lookup", first.StageLabel)
	}
	if len(first.CompletedSteps) != 2 {
		t.Errorf("completed_steps = %v, want request_received and oem_verified", first.CompletedSteps)
	}

	// Unknown status passes through verbatim and allows no actions
	second := state.Data[1]
	if second.Stage != "unknown" {
		t.Errorf("stage = %q, want unknown", second.Stage)
	}
	if second.StageLabel != "negotiating_v2" {
		t.Errorf("stage_label = %q, want the raw status verbatim", second.StageLabel)
	}
	if len(second.AllowedActions) != 0 {
		t.Errorf("allowed_actions = %v, want none for an unknown stage", second.AllowedActions)
	}
}

func TestGetDashboard(t *testing.T) {
	f := newBridge(t, nil)

	resp, err := http.Get(f.ts.URL + "/api/dashboard")
	if err != nil {
		t.Fatalf("GET /api/dashboard error = %v", err)
	}
	defer resp.Body.Close()

	var state struct {
		Data brokerage.DashboardSummary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if state.Data.OpenOrders != 3 {
		t.Errorf("open_orders = %d, want 3", state.Data.OpenOrders)
	}
}

func TestPreferences_Roundtrip(t *testing.T) {
	f := newBridge(t, nil)

	resp, err := http.Get(f.ts.URL + "/api/preferences")
	if err != nil {
		t.Fatalf("GET /api/preferences error = %v", err)
	}
	var before prefs.Preferences
	if err := json.NewDecoder(resp.Body).Decode(&before); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	resp.Body.Close()
	if before.Theme != "" || before.HasSeenWelcome {
		t.Errorf("fresh store should return zero preferences, got %+v", before)
	}

	body := strings.NewReader(`{"theme":"dark","language":"de","has_seen_welcome":true}`)
	req, _ := http.NewRequest(http.MethodPut, f.ts.URL+"/api/preferences", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/preferences error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(f.ts.URL + "/api/preferences")
	if err != nil {
		t.Fatalf("GET /api/preferences error = %v", err)
	}
	defer resp.Body.Close()
	var after prefs.Preferences
	if err := json.NewDecoder(resp.Body).Decode(&after); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	want := prefs.Preferences{Theme: "dark", Language: "de", HasSeenWelcome: true}
	if after != want {
		t.Errorf("preferences after save = %+v, want %+v", after, want)
	}
}

func TestGetInvoices_NotConfigured(t *testing.T) {
	f := newBridge(t, nil)

	resp, err := http.Get(f.ts.URL + "/api/invoices")
	if err != nil {
		t.Fatalf("GET /api/invoices error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when no source is wired", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	admin, err := identity.NewAdmin("ops", "s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewAdmin() error = %v", err)
	}
	f := newBridge(t, admin)

	// No credentials
	resp, err := http.Get(f.ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without credentials = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Error("401 without credentials should carry WWW-Authenticate")
	}

	// Wrong credentials
	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/api/session", nil)
	req.SetBasicAuth("ops", "wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status with wrong credentials = %d, want 401", resp.StatusCode)
	}

	// Valid credentials
	req, _ = http.NewRequest(http.MethodGet, f.ts.URL+"/api/session", nil)
	req.SetBasicAuth("ops", "s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status with valid credentials = %d, want 200", resp.StatusCode)
	}

	// Health stays public
	resp, err = http.Get(f.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200 without credentials", resp.StatusCode)
	}
}

func TestNew_MissingDeps(t *testing.T) {
	cfg := config.ProdConfig()
	if _, err := server.New(cfg, nil, nil, nil); err == nil {
		t.Error("expected error for nil deps")
	}
	if _, err := server.New(cfg, nil, &server.Deps{}, nil); err == nil {
		t.Error("expected error for missing resolver and registry")
	}
}
