package poll

import (
	"context"
	"sync"
)

// Source is the non-generic face of a Resource, used by the registry.
type Source interface {
	Name() string
	Refresh(ctx context.Context, silent bool)
	Reset(ctx context.Context)
	Stop()
}

// Registry tracks every polling data source so session invalidation can
// reset them all in one operation instead of a process reload.
type Registry struct {
	mu      sync.Mutex
	sources []Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a source.
func (g *Registry) Add(s Source) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sources = append(g.sources, s)
}

// ResetAll drops the state of every registered source and re-runs its
// eager fetch. Called on tenant switch: the safety property is that no
// stale tenant-scoped data survives.
func (g *Registry) ResetAll(ctx context.Context) {
	for _, s := range g.snapshot() {
		s.Reset(ctx)
	}
}

// RefreshAll runs a user-triggered reload of every registered source.
// Loading is visible: these are explicit reloads, not background ticks.
func (g *Registry) RefreshAll(ctx context.Context) {
	for _, s := range g.snapshot() {
		s.Refresh(ctx, false)
	}
}

// StopAll tears down every registered source.
func (g *Registry) StopAll() {
	for _, s := range g.snapshot() {
		s.Stop()
	}
}

func (g *Registry) snapshot() []Source {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Source, len(g.sources))
	copy(out, g.sources)
	return out
}
