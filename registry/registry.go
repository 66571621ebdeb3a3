// Package registry tracks which component types exist and where to reach
// their stores, and fans out snapshot requests across all of them.
package registry

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian-games/shardcore/store"
	"github.com/meridian-games/shardcore/types"
)

var ErrUnknownComponentType = eris.New("component type is not registered")

// Registry owns the set of component stores for one simulation.
type Registry struct {
	ns     *Namespace
	logger zerolog.Logger

	mu     sync.RWMutex
	stores map[string]*store.Store
	order  []string
}

func New(ns *Namespace) *Registry {
	return &Registry{
		ns:     ns,
		logger: log.With().Str("module", "registry").Logger(),
		stores: make(map[string]*store.Store),
		order:  make([]string, 0),
	}
}

// Register creates the store for the component type and publishes its
// address to the shared namespace. Registering an already-registered type
// is a no-op that returns the existing store.
func (r *Registry) Register(ctx context.Context, meta types.ComponentMetadata) (*store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.stores[meta.Name()]; ok {
		return existing, nil
	}

	address := "store." + meta.Name()
	s := store.New(meta, address)
	if err := r.ns.Publish(ctx, meta.Name(), address); err != nil {
		s.Close()
		return nil, err
	}
	r.stores[meta.Name()] = s
	r.order = append(r.order, meta.Name())
	r.logger.Info().Str("component", meta.Name()).Str("address", address).Msg("store registered")
	return s, nil
}

// Get resolves a store by component type name.
func (r *Registry) Get(componentType string) (*store.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[componentType]
	if !ok {
		return nil, eris.Wrap(ErrUnknownComponentType, componentType)
	}
	return s, nil
}

// Has reports whether the component type is registered.
func (r *Registry) Has(componentType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stores[componentType]
	return ok
}

// Types returns registered component type names in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// LookupAddress resolves a store address through the shared namespace, the
// same path external collaborators use.
func (r *Registry) LookupAddress(ctx context.Context, componentType string) (string, error) {
	return r.ns.Lookup(ctx, componentType)
}

// Shutdown closes every store and clears the namespace entries this
// registry published.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.stores {
		s.Close()
		if err := r.ns.Remove(ctx, name); err != nil {
			r.logger.Warn().Err(err).Str("component", name).Msg("failed to clear namespace entry")
		}
	}
	r.stores = make(map[string]*store.Store)
	r.order = r.order[:0]
}
