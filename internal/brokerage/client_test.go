package brokerage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/partsdesk/partsdesk-go/internal/brokerage"
	"github.com/partsdesk/partsdesk-go/internal/config"
	"github.com/partsdesk/partsdesk-go/internal/credentials"
	"github.com/partsdesk/partsdesk-go/internal/gateway"
	"github.com/partsdesk/partsdesk-go/internal/httpclient"
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

func newClient(t *testing.T, handler http.Handler) *brokerage.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := &config.APIConfig{
		Origin:           ts.URL,
		TimeoutMS:        5000,
		ConnectTimeoutMS: 1000,
		MaxResponseBytes: 1 << 20,
	}
	gw, err := gateway.New(cfg, credentials.New(newMemDriver()), httpclient.New(cfg), nil)
	if err != nil {
		t.Fatalf("gateway.New() error = %v", err)
	}
	return brokerage.NewClient(gw)
}

func TestListOrders(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders" {
			t.Errorf("path = %s, want /api/orders", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":1,"status":"new","part":"brake disc","contact":{"name":"K. Meyer","phone":"+491700000001"}},
			{"id":2,"status":"done","part":"alternator","oem":"06F-903-023"}
		]`))
	}))

	orders, err := client.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if orders[0].RawStatus != "new" {
		t.Errorf("RawStatus = %q, want new", orders[0].RawStatus)
	}
	if orders[0].Contact.Name != "K. Meyer" {
		t.Errorf("Contact.Name = %q", orders[0].Contact.Name)
	}
	if orders[1].OEM != "06F-903-023" {
		t.Errorf("OEM = %q", orders[1].OEM)
	}
}

func TestMe(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"identity":{"id":1,"name":"Sam","phone":"+491700000000"},
			"memberships":[{"id":10,"tenant_id":1,"tenant_name":"Autoteile Nord","role":"owner"}]
		}`))
	}))

	me, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.Identity.Name != "Sam" {
		t.Errorf("Identity.Name = %q", me.Identity.Name)
	}
	if len(me.Memberships) != 1 || me.Memberships[0].Role != brokerage.RoleOwner {
		t.Errorf("Memberships = %+v", me.Memberships)
	}
}

func TestPublishOffer(t *testing.T) {
	var gotPath string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.PublishOffer(context.Background(), 12, 34); err != nil {
		t.Fatalf("PublishOffer() error = %v", err)
	}
	if gotPath != "/api/orders/12/offers/34/publish" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestCreateInvoice(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte(`{"id":5,"order_id":12,"number":"RE-2024-0042","total":189.90,"currency":"EUR"}`))
	}))

	inv, err := client.CreateInvoice(context.Background(), 12)
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if inv.Number != "RE-2024-0042" {
		t.Errorf("Number = %q", inv.Number)
	}
	if inv.Total != 189.90 {
		t.Errorf("Total = %v", inv.Total)
	}
}
