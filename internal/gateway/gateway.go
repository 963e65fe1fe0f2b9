// Package gateway wraps every outbound call to the brokerage API.
//
// It injects the device, tenant, and authorization headers, normalizes
// failures into *RequestError, and special-cases 204 No Content. It never
// retries and never refreshes tokens: a 401 propagates to the caller,
// which owns the re-authentication decision.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/partsdesk/partsdesk-go/internal/api"
	"github.com/partsdesk/partsdesk-go/internal/config"
	"github.com/partsdesk/partsdesk-go/internal/credentials"
	"github.com/partsdesk/partsdesk-go/internal/httpclient"
	"github.com/partsdesk/partsdesk-go/internal/logutil"
)

// Header names understood by the brokerage API.
const (
	HeaderDeviceID = "X-Device-Id"
	HeaderTenantID = "X-Tenant-Id"
)

// RequestError is a normalized API failure. Callers branch on Status.
type RequestError struct {
	Status  int
	Reason  string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is a *RequestError with the given status.
func IsStatus(err error, status int) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Status == status
}

// IsUnauthorized reports whether err is a 401 API failure.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// Gateway issues requests against a single configured API origin.
type Gateway struct {
	origin string
	chain  []string
	dev    string

	creds  *credentials.Store
	client *httpclient.Client
	logger *slog.Logger
}

// New creates a gateway. The origin is validated here, once, so a
// misconfigured deployment fails at startup instead of mid-session.
func New(cfg *config.APIConfig, creds *credentials.Store, client *httpclient.Client, logger *slog.Logger) (*Gateway, error) {
	origin, err := config.NormalizeOrigin(cfg.Origin)
	if err != nil {
		return nil, err
	}
	chain := cfg.TokenChain
	if len(chain) == 0 {
		chain = []string{config.TokenSourceStore}
	}
	return &Gateway{
		origin: origin,
		chain:  chain,
		dev:    cfg.DevToken,
		creds:  creds,
		client: client,
		logger: logutil.NoopIfNil(logger),
	}, nil
}

// Do issues a request and decodes the JSON response into out.
// A nil out discards the body. A 204 resolves without touching the body.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, g.origin+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	set, err := g.creds.Credentials(ctx)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderDeviceID, set.DeviceID)
	if set.HasTenant() {
		req.Header.Set(HeaderTenantID, strconv.FormatInt(set.TenantID, 10))
	}
	// A request with no token goes out unauthenticated; the server owns
	// the auth decision.
	if token := g.resolveToken(set); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := g.client.ReadBody(resp)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return g.normalizeError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Get issues a GET request.
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

// Delete issues a DELETE request.
func (g *Gateway) Delete(ctx context.Context, path string) error {
	return g.Do(ctx, http.MethodDelete, path, nil, nil)
}

// resolveToken walks the configured token chain. The chain is explicit:
// which sources are consulted, and in which order, is configuration, not
// an ambient fallback buried in request code.
func (g *Gateway) resolveToken(set credentials.CredentialSet) string {
	for _, src := range g.chain {
		switch src {
		case config.TokenSourceStore:
			if set.Token != "" {
				return set.Token
			}
		case config.TokenSourceLegacy:
			if set.LegacyToken != "" {
				return set.LegacyToken
			}
		case config.TokenSourceDev:
			if g.dev != "" {
				return g.dev
			}
		}
	}
	return ""
}

// normalizeError turns a non-2xx response into a *RequestError. Parsing
// the error body must never itself fail the caller: an unparseable body
// degrades to a generic message.
func (g *Gateway) normalizeError(status int, body []byte) error {
	re := &RequestError{
		Status:  status,
		Reason:  api.ReasonInternalError,
		Message: fmt.Sprintf("request failed with status %d", status),
	}

	var envelope api.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		re.Message = envelope.Error.Message
		if envelope.Error.ReasonCode != "" {
			re.Reason = envelope.Error.ReasonCode
		}
		return re
	}

	// Some endpoints return a flat {"message": "..."} shape.
	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Message != "" {
		re.Message = flat.Message
	}
	return re
}
