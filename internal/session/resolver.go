// Package session resolves the authenticated identity and the active
// tenant, and owns session invalidation.
//
// The session is derived, never stored: it is rebuilt from the remote
// membership list on load, on tenant switch, and on logout. Tenant
// switch is a terminal operation: rather than invalidating N pollers
// piecemeal, the resolver persists the new id and resets every
// registered data source.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/partsdesk/partsdesk-go/internal/brokerage"
	"github.com/partsdesk/partsdesk-go/internal/cache"
	"github.com/partsdesk/partsdesk-go/internal/credentials"
	"github.com/partsdesk/partsdesk-go/internal/logutil"
	"github.com/partsdesk/partsdesk-go/internal/poll"
)

// ErrUnknownTenant is returned by SwitchTenant for a tenant the current
// identity is not a member of.
var ErrUnknownTenant = errors.New("tenant not in membership list")

const membershipCacheKey = "session:me"

// Session is the derived session state. ActiveTenant is nil when no
// tenant could be activated; that is a valid, renderable state, and
// dependent views must handle it without crashing.
type Session struct {
	Identity     brokerage.Identity     `json:"identity"`
	Memberships  []brokerage.Membership `json:"memberships"`
	ActiveTenant *brokerage.Membership  `json:"active_tenant"`
}

// API is the slice of the brokerage client the resolver needs.
type API interface {
	Me(ctx context.Context) (*brokerage.Me, error)
	Logout(ctx context.Context) error
}

// Resolver resolves and invalidates the session.
type Resolver struct {
	api      API
	creds    *credentials.Store
	cache    cache.Cache
	registry *poll.Registry
	ttl      time.Duration
	logger   *slog.Logger
}

// Options configures a Resolver.
type Options struct {
	// MembershipTTL bounds how long the fetched membership list is
	// reused before hitting the API again. Zero uses the default.
	MembershipTTL time.Duration

	Logger *slog.Logger
}

// NewResolver creates a session resolver. A nil cache disables
// membership caching.
func NewResolver(api API, creds *credentials.Store, c cache.Cache, registry *poll.Registry, opts Options) *Resolver {
	ttl := opts.MembershipTTL
	if ttl <= 0 {
		ttl = cache.TTLMemberships
	}
	return &Resolver{
		api:      api,
		creds:    creds,
		cache:    c,
		registry: registry,
		ttl:      ttl,
		logger:   logutil.NoopIfNil(opts.Logger),
	}
}

// Resolve builds the session. The selection rule: a previously stored
// tenant id that appears in the membership list becomes active; a stored
// id that no longer appears is silently dropped and the first membership
// (server order) becomes active and is persisted as the new selection.
//
// On membership fetch failure the returned session is non-nil but has no
// active tenant, and the fetch error is returned alongside it; the
// resolver never guesses a tenant it could not verify.
func (r *Resolver) Resolve(ctx context.Context) (*Session, error) {
	me, err := r.fetchMe(ctx)
	if err != nil {
		r.logger.Warn("membership resolution failed", "error", err)
		return &Session{}, fmt.Errorf("resolve session: %w", err)
	}

	sess := &Session{
		Identity:    me.Identity,
		Memberships: me.Memberships,
	}
	if len(me.Memberships) == 0 {
		return sess, nil
	}

	set, err := r.creds.Credentials(ctx)
	if err != nil {
		return sess, err
	}

	if set.HasTenant() {
		if m := findMembership(me.Memberships, set.TenantID); m != nil {
			sess.ActiveTenant = m
			return sess, nil
		}
		r.logger.Info("stored tenant no longer in membership list, falling back",
			"stored_tenant_id", set.TenantID)
	}

	first := me.Memberships[0]
	if err := r.creds.SetActiveTenant(ctx, first.TenantID); err != nil {
		return sess, err
	}
	sess.ActiveTenant = &first
	return sess, nil
}

// SwitchTenant activates another tenant the identity is a member of,
// persists the selection, and resets every registered data source so no
// stale tenant-scoped data survives. It returns the re-resolved session.
func (r *Resolver) SwitchTenant(ctx context.Context, tenantID int64) (*Session, error) {
	me, err := r.fetchMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("switch tenant: %w", err)
	}
	if findMembership(me.Memberships, tenantID) == nil {
		return nil, fmt.Errorf("switch tenant %d: %w", tenantID, ErrUnknownTenant)
	}

	if err := r.creds.SetActiveTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	r.invalidateCache(ctx)

	// From here the new selection is live on the wire: the gateway sends
	// the new tenant header on every request. The data sources are reset
	// on every path past this point, even when re-resolution fails, so no
	// poller keeps serving the previous tenant's data.
	defer func() {
		if r.registry != nil {
			r.registry.ResetAll(ctx)
		}
	}()

	sess, err := r.Resolve(ctx)
	if err != nil {
		return sess, err
	}

	r.logger.Info("tenant switched", "tenant_id", tenantID)
	return sess, nil
}

// Logout ends the session: best-effort server-side logout, credential
// clear (device id survives), cache invalidation, and a reset of every
// data source.
func (r *Resolver) Logout(ctx context.Context) error {
	if err := r.api.Logout(ctx); err != nil {
		// The server session may already be gone; local teardown
		// proceeds regardless.
		r.logger.Debug("server-side logout failed", "error", err)
	}

	if err := r.creds.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	r.invalidateCache(ctx)

	if r.registry != nil {
		r.registry.ResetAll(ctx)
	}
	return nil
}

// fetchMe returns the cached membership document or fetches it.
func (r *Resolver) fetchMe(ctx context.Context) (*brokerage.Me, error) {
	if r.cache != nil {
		if data, err := r.cache.Get(ctx, membershipCacheKey); err == nil {
			var me brokerage.Me
			if err := json.Unmarshal(data, &me); err == nil {
				return &me, nil
			}
		}
	}

	me, err := r.api.Me(ctx)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if data, err := json.Marshal(me); err == nil {
			r.cache.Set(ctx, membershipCacheKey, data, r.ttl)
		}
	}
	return me, nil
}

func (r *Resolver) invalidateCache(ctx context.Context) {
	if r.cache != nil {
		r.cache.Delete(ctx, membershipCacheKey)
	}
}

func findMembership(list []brokerage.Membership, tenantID int64) *brokerage.Membership {
	for i := range list {
		if list[i].TenantID == tenantID {
			return &list[i]
		}
	}
	return nil
}
