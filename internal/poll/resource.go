// Package poll implements the generic polling data source: fetch once
// eagerly, then silently re-fetch on a fixed interval.
//
// Each resource owns its state exclusively; consumers only read
// snapshots. There is one abstraction parameterized by a fetch function
// and an optionality flag, not one hand-written variant per entity.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/partsdesk/partsdesk-go/internal/logutil"
)

// DefaultInterval is the background refresh interval when none is configured.
const DefaultInterval = 5 * time.Minute

// State is a point-in-time snapshot of a polled resource.
type State[T any] struct {
	Data        T         `json:"data"`
	Loading     bool      `json:"loading"`
	Err         string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"last_updated_at,omitzero"`
}

// Options configures a Resource.
type Options struct {
	// AutoRefresh enables the background refresh cycle.
	AutoRefresh bool

	// Interval is the background refresh period. Zero means DefaultInterval.
	Interval time.Duration

	// Optional marks a resource whose absence is legitimate: a fetch
	// failure is logged and resolves to zero-value data with no error,
	// distinguishing "feature absent" from "feature broken".
	Optional bool

	Logger *slog.Logger
}

// Resource is a polled accessor for one resource kind.
type Resource[T any] struct {
	name   string
	fetch  func(ctx context.Context) (T, error)
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	state    State[T]
	inFlight bool
	stopped  bool

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a resource around a fetch function. Call Start to run the
// eager fetch and, when enabled, the background cycle.
func New[T any](name string, fetch func(ctx context.Context) (T, error), opts Options) *Resource[T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Resource[T]{
		name:   name,
		fetch:  fetch,
		opts:   opts,
		logger: logutil.NoopIfNil(opts.Logger).With("resource", name),
		stop:   make(chan struct{}),
	}
}

// Name returns the resource name.
func (r *Resource[T]) Name() string { return r.name }

// Start runs the eager first fetch (with loading visible) and launches
// the background refresh cycle when AutoRefresh is enabled.
func (r *Resource[T]) Start(ctx context.Context) {
	r.Refresh(ctx, false)

	if !r.opts.AutoRefresh {
		return
	}
	go r.refreshLoop(ctx)
}

func (r *Resource[T]) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Silent: background updates must not flicker the UI.
			r.Refresh(ctx, true)
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Refresh runs one fetch cycle. When silent, Loading is left untouched
// so background updates stay invisible; errors still surface. A refresh
// is skipped when one is already in flight.
func (r *Resource[T]) Refresh(ctx context.Context, silent bool) {
	r.mu.Lock()
	if r.stopped || r.inFlight {
		r.mu.Unlock()
		return
	}
	r.inFlight = true
	if !silent {
		r.state.Loading = true
	}
	r.mu.Unlock()

	data, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	// A late completion after teardown must not mutate state.
	if r.stopped {
		return
	}
	r.state.Loading = false

	if err != nil {
		if r.opts.Optional {
			// Feature absent, not broken: resolve to empty data.
			r.logger.Debug("optional resource fetch failed", "error", err)
			var zero T
			r.state.Data = zero
			r.state.Err = ""
			r.state.LastUpdated = time.Now()
			return
		}
		r.logger.Warn("resource fetch failed", "error", err)
		// Mandatory: keep previous data, surface the message.
		r.state.Err = err.Error()
		return
	}

	r.state.Data = data
	r.state.Err = ""
	r.state.LastUpdated = time.Now()
}

// Snapshot returns the current state. The data value is shared, not
// deep-copied; consumers treat it as read-only.
func (r *Resource[T]) Snapshot() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reset drops all state and re-runs the eager fetch. Used when the
// session is invalidated: no stale tenant-scoped data may survive.
func (r *Resource[T]) Reset(ctx context.Context) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.state = State[T]{}
	r.mu.Unlock()

	r.Refresh(ctx, false)
}

// Stop tears the resource down: the background cycle ends and any
// in-flight completion is ignored.
func (r *Resource[T]) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}
