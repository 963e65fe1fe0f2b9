package brokerage

import (
	"context"
	"fmt"

	"github.com/partsdesk/partsdesk-go/internal/gateway"
)

// Client is the typed client over the request gateway. Endpoints are
// treated as a black box returning JSON; the client owns the paths and
// shapes, nothing else.
type Client struct {
	gw *gateway.Gateway
}

// NewClient creates a brokerage API client.
func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Login authenticates with a phone number and one-time code.
func (c *Client) Login(ctx context.Context, phone, code string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"phone": phone, "code": code}
	if err := c.gw.Post(ctx, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.gw.Post(ctx, "/api/auth/logout", nil, nil)
}

// Me returns the authenticated identity and its tenant memberships.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var out Me
	if err := c.gw.Get(ctx, "/api/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns the full order collection for the active tenant.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.gw.Get(ctx, "/api/orders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder returns a single order.
func (c *Client) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var out Order
	if err := c.gw.Get(ctx, fmt.Sprintf("/api/orders/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard returns the dashboard summary for the active tenant.
func (c *Client) Dashboard(ctx context.Context) (DashboardSummary, error) {
	var out DashboardSummary
	if err := c.gw.Get(ctx, "/api/dashboard", &out); err != nil {
		return DashboardSummary{}, err
	}
	return out, nil
}

// ListInvoices returns the invoice collection. Invoicing may be
// unconfigured for a tenant; the caller decides how to treat failures.
func (c *Client) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var out []Invoice
	if err := c.gw.Get(ctx, "/api/invoices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListInventory returns the stocked parts collection.
func (c *Client) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	var out []InventoryItem
	if err := c.gw.Get(ctx, "/api/inventory", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PublishOffer publishes a collected offer to the customer.
func (c *Client) PublishOffer(ctx context.Context, orderID, offerID int64) error {
	path := fmt.Sprintf("/api/orders/%d/offers/%d/publish", orderID, offerID)
	return c.gw.Post(ctx, path, nil, nil)
}

// CreateInvoice issues an invoice for a confirmed order.
func (c *Client) CreateInvoice(ctx context.Context, orderID int64) (*Invoice, error) {
	var out Invoice
	if err := c.gw.Post(ctx, fmt.Sprintf("/api/orders/%d/invoice", orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
