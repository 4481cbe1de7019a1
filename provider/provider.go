// Package provider implements the capability layer: a uniform interface over
// external callables (search, data lookups, memory operations) that agents
// invoke with schema-validated arguments. Providers are stateless between
// invocations; any state lives in the session store, never in the provider.
package provider

import (
	"context"
	"sort"

	"github.com/hupe1980/agenthost/core"
)

// Provider is the uniform wrapper over an external callable capability.
//
// Implementations must:
//   - Be safe for concurrent use (no per-invocation mutable state)
//   - Respect context cancellation during network I/O
//   - Report failures through the core error taxonomy: transient faults as
//     ErrProviderUnavailable, argument bugs as ErrInvalidArguments and
//     business-level rejections as ErrProviderRefused
//
// Providers are not guaranteed idempotent; callers must not retry
// unconditionally.
type Provider interface {
	// Name returns the unique identifier exposed to the model
	// (snake_case recommended).
	Name() string

	// Description is the natural language description shown to the model.
	Description() string

	// Parameters returns a JSON schema subset describing accepted arguments.
	Parameters() map[string]any

	// Invoke executes the capability with already-decoded arguments.
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Registry is a closed name -> Provider mapping. Lookups of unknown names
// return a typed error rather than panicking; the set is fixed after
// construction.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers. Duplicate names are
// rejected so an agent definition cannot silently shadow a capability.
func NewRegistry(providers ...Provider) (*Registry, error) {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if _, exists := m[p.Name()]; exists {
			return nil, core.Errorf(core.ErrInvalidArguments, "duplicate provider name %q", p.Name())
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m}, nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, core.Errorf(core.ErrInvalidArguments, "unknown tool %q", name)
	}
	return p, nil
}

// Has reports whether a provider is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered providers keyed by name. The returned map is a
// copy; mutating it does not affect the registry.
func (r *Registry) All() map[string]Provider {
	m := make(map[string]Provider, len(r.providers))
	for name, p := range r.providers {
		m[name] = p
	}
	return m
}

// WithExtra derives a new registry containing this registry's providers plus
// the given request-scoped ones (history read, memory search). The receiver
// is unchanged.
func (r *Registry) WithExtra(providers ...Provider) (*Registry, error) {
	all := make([]Provider, 0, len(r.providers)+len(providers))
	for _, p := range r.providers {
		all = append(all, p)
	}
	all = append(all, providers...)
	return NewRegistry(all...)
}
