// Package registry maps opaque tenant identifiers to RAG engine instances.
// Engines are created lazily and dropped when the owning session expires;
// expiry itself is declared by an external lifecycle component.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/studyowl/docrag/internal/domain"
	"github.com/studyowl/docrag/internal/engine"
)

// Credentials carry the provider settings a tenant's engine is built with.
type Credentials struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
}

// Factory builds one engine for a tenant. Injected by the composition root
// so tests can substitute stub providers.
type Factory func(tenantID string, creds Credentials) (*engine.Engine, error)

// Registry is an owned collection of per-tenant engines. It is constructed
// once at process start and passed by handle, never held as package state.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	engines map[string]*engine.Engine
}

// New creates an empty registry.
func New(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		engines: make(map[string]*engine.Engine),
	}
}

// GetOrCreate returns the tenant's engine, constructing it on first use.
func (r *Registry) GetOrCreate(tenantID string, creds Credentials) (*engine.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if eng, ok := r.engines[tenantID]; ok {
		return eng, nil
	}

	eng, err := r.factory(tenantID, creds)
	if err != nil {
		return nil, fmt.Errorf("create engine for tenant %q: %w", tenantID, err)
	}
	r.engines[tenantID] = eng
	return eng, nil
}

// Get returns the tenant's engine or domain.ErrTenantNotFound.
func (r *Registry) Get(tenantID string) (*engine.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	eng, ok := r.engines[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, domain.ErrTenantNotFound)
	}
	return eng, nil
}

// Drop removes the tenant's engine and, with it, the entire index. Invoked
// by the session lifecycle component; dropping an unknown tenant is a no-op.
func (r *Registry) Drop(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, tenantID)
}

// Tenants returns the registered tenant ids, sorted.
func (r *Registry) Tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live tenants.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}
