// Package registry resolves token identity (symbol, name, decimals,
// verified and scam flags) through an ordered source chain with an
// indefinite cache. Resolution never fails outright: when every source is
// exhausted a placeholder identity is returned.
package registry

import (
	"context"
	"errors"
	"log"
	"sync"

	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/observability"
)

// ErrUnresolvedMetadata marks a single source failing to resolve a mint.
// It never propagates out of Resolve.
var ErrUnresolvedMetadata = errors.New("token metadata unresolved")

// Source is one identity resolver tried in chain order.
type Source interface {
	Name() string
	TryResolve(ctx context.Context, mint string) (*domain.TokenIdentity, error)
}

// Gate paces upstream calls. Satisfied by throttle.Gate.
type Gate interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Registry resolves and caches token identities.
type Registry struct {
	mu      sync.RWMutex
	cache   map[string]domain.TokenIdentity
	sources []Source
	gate    Gate
	logger  *log.Logger
	scam    map[string]bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithScamMints adds mints to the known-scam set.
func WithScamMints(mints []string) Option {
	return func(r *Registry) {
		for _, m := range mints {
			r.scam[m] = true
		}
	}
}

// New creates a registry over the given source chain. Sources are tried in
// slice order after the built-in table and the scam set.
func New(gate Gate, sources []Source, opts ...Option) *Registry {
	r := &Registry{
		cache:   make(map[string]domain.TokenIdentity),
		sources: sources,
		gate:    gate,
		logger:  log.Default(),
		scam:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the identity for a mint. Chain order: built-in table,
// known-scam set, then remote sources through the gate. The first two steps
// are pure lookups and need no cache; remote results (including the
// placeholder) are cached indefinitely since token identity does not change.
func (r *Registry) Resolve(ctx context.Context, mint string) domain.TokenIdentity {
	if id, ok := wellKnown[mint]; ok {
		return id
	}

	if r.scam[mint] {
		id := domain.PlaceholderIdentity(mint)
		id.IsScam = true
		return id
	}

	r.mu.RLock()
	cached, ok := r.cache[mint]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	id := r.resolveRemote(ctx, mint)

	r.mu.Lock()
	r.cache[mint] = id
	r.mu.Unlock()
	return id
}

// Invalidate drops a cached identity so the next Resolve re-walks the
// chain. Used to refresh verified/scam flags on a longer cycle.
func (r *Registry) Invalidate(mint string) {
	r.mu.Lock()
	delete(r.cache, mint)
	r.mu.Unlock()
}

func (r *Registry) resolveRemote(ctx context.Context, mint string) domain.TokenIdentity {
	for _, src := range r.sources {
		var id *domain.TokenIdentity
		err := r.gate.Do(ctx, func(ctx context.Context) error {
			var srcErr error
			id, srcErr = src.TryResolve(ctx, mint)
			return srcErr
		})
		if err != nil || id == nil {
			observability.RecordSourceCall(src.Name(), "error")
			r.logger.Printf("registry source %s failed for %s: %v", src.Name(), mint, err)
			continue
		}
		observability.RecordSourceCall(src.Name(), "ok")
		return *id
	}

	// Chain exhausted: the pipeline must keep flowing with a placeholder.
	r.logger.Printf("registry: %v for %s, using placeholder", ErrUnresolvedMetadata, mint)
	return domain.PlaceholderIdentity(mint)
}
