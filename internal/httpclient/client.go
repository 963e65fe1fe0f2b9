// Package httpclient provides a bounded outbound HTTP client.
//
// The client ignores proxy environment variables, applies connect and
// overall timeouts from configuration, and caps response body reads. It
// performs no retries and follows no redirects: the brokerage API is a
// fixed origin, and a redirect from it is treated as a response, not a
// navigation.
package httpclient

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/partsdesk/partsdesk-go/internal/config"
)

// ErrResponseTooLarge is returned by ReadBody when a response exceeds
// the configured size cap.
var ErrResponseTooLarge = errors.New("response body too large")

// Client is a bounded HTTP client for calls to the brokerage API.
type Client struct {
	cfg        *config.APIConfig
	httpClient *http.Client
}

// New creates a new bounded HTTP client.
func New(cfg *config.APIConfig) *Client {
	if cfg == nil {
		cfg = &config.APIConfig{
			TimeoutMS:        10000,
			ConnectTimeoutMS: 2000,
			MaxResponseBytes: 4194304,
		}
	}

	dialer := &net.Dialer{
		Timeout: time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond,
	}

	transport := &http.Transport{
		// Explicitly ignore proxy environment variables
		Proxy:       nil,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutMS) * time.Millisecond,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Do performs an HTTP request.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// ReadBody reads a response body with the configured size limit.
// The caller keeps responsibility for closing the body.
func (c *Client) ReadBody(resp *http.Response) ([]byte, error) {
	max := c.cfg.MaxResponseBytes
	if max <= 0 {
		max = 4194304
	}
	limited := io.LimitReader(resp.Body, max+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > max {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}
