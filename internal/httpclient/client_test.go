package httpclient_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/partsdesk/partsdesk-go/internal/config"
	"github.com/partsdesk/partsdesk-go/internal/httpclient"
)

func TestReadBody_Limit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer ts.Close()

	c := httpclient.New(&config.APIConfig{
		TimeoutMS:        5000,
		ConnectTimeoutMS: 1000,
		MaxResponseBytes: 50,
	})

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	if _, err := c.ReadBody(resp); !errors.Is(err, httpclient.ErrResponseTooLarge) {
		t.Errorf("ReadBody() error = %v, want ErrResponseTooLarge", err)
	}
}

func TestReadBody_WithinLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer ts.Close()

	c := httpclient.New(&config.APIConfig{
		TimeoutMS:        5000,
		ConnectTimeoutMS: 1000,
		MaxResponseBytes: 50,
	})

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	body, err := c.ReadBody(resp)
	if err != nil {
		t.Fatalf("ReadBody() error = %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("ReadBody() = %q, want hello", body)
	}
}

func TestClient_NoRedirectFollow(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer ts.Close()

	c := httpclient.New(&config.APIConfig{TimeoutMS: 5000, ConnectTimeoutMS: 1000})

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	// A redirect is a response, not a navigation
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302 returned as-is", resp.StatusCode)
	}
}
