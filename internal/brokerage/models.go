// Package brokerage defines the parts-brokerage domain types and the
// typed client for the remote dashboard API.
package brokerage

import "time"

// Role is a membership role within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Identity is the authenticated user.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Membership ties the identity to a tenant. Read-only from the client's
// perspective; mutations happen through server-side admin operations.
type Membership struct {
	ID         int64  `json:"id"`
	TenantID   int64  `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	TenantSlug string `json:"tenant_slug"`
	Role       Role   `json:"role"`
	IsActive   bool   `json:"is_active"`
}

// Contact is the WhatsApp contact an inquiry came from.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Vehicle describes the car an inquiry is about.
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	VIN   string `json:"vin"`
}

// Offer is a supplier offer collected for an order.
type Offer struct {
	ID        int64     `json:"id"`
	Supplier  string    `json:"supplier"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	LeadDays  int       `json:"lead_days"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is a customer inquiry moving through the brokerage pipeline.
// RawStatus is authoritative and opaque; only the lifecycle package is
// permitted to interpret it.
type Order struct {
	ID          int64     `json:"id"`
	ExternalRef string    `json:"external_ref"`
	RawStatus   string    `json:"status"`
	Contact     Contact   `json:"contact"`
	Vehicle     Vehicle   `json:"vehicle"`
	Part        string    `json:"part"`
	OEM         string    `json:"oem"`
	Offers      []Offer   `json:"offers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Invoice is a billing document issued for a confirmed order.
type Invoice struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Number    string    `json:"number"`
	Total     float64   `json:"total"`
	Currency  string    `json:"currency"`
	IssuedAt  time.Time `json:"issued_at"`
	PaidAt    time.Time `json:"paid_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
}

// InventoryItem is a stocked part.
type InventoryItem struct {
	ID       int64   `json:"id"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	OEM      string  `json:"oem"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// DashboardSummary is the aggregate view shown on the dashboard landing page.
type DashboardSummary struct {
	OpenOrders      int     `json:"open_orders"`
	AwaitingOffers  int     `json:"awaiting_offers"`
	ConfirmedToday  int     `json:"confirmed_today"`
	InvoicedTotal   float64 `json:"invoiced_total"`
	Currency        string  `json:"currency"`
	NewInquiries24h int     `json:"new_inquiries_24h"`
}

// Me is the identity plus its tenant memberships, as returned by the API.
type Me struct {
	Identity    Identity     `json:"identity"`
	Memberships []Membership `json:"memberships"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}
