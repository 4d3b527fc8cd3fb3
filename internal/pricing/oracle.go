// Package pricing resolves USD prices for mints through an ordered chain of
// best-effort upstream sources with a TTL cache.
package pricing

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/observability"
	"solana-wallet-sentinel/internal/throttle"
)

// ErrUnknownPrice is returned when every source failed and no price was
// ever observed for the mint. Callers must treat it as "unknown", never as
// zero.
var ErrUnknownPrice = errors.New("price unknown: all sources exhausted and no cached value")

// ErrUpstreamUnavailable marks a source failure: non-2xx status or a
// payload the source could not interpret.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// DefaultTTL is how long a cached price is considered fresh.
const DefaultTTL = 5 * time.Minute

// Source is one upstream price feed tried in chain order.
type Source interface {
	Name() string
	// TryFetch returns the USD price for a mint, or an error when the
	// source cannot serve it. Errors never abort the chain.
	TryFetch(ctx context.Context, mint string) (float64, error)
}

// Gate paces upstream calls. Satisfied by throttle.Gate.
type Gate interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// peggedMints maps stablecoin mints to their fixed USD value. Pegged mints
// bypass the network chain entirely.
var peggedMints = map[string]float64{
	domain.USDCMint: 1.0,
	domain.USDTMint: 1.0,
}

// Oracle resolves mint prices via the source chain and caches results.
type Oracle struct {
	mu      sync.RWMutex
	cache   map[string]domain.PricePoint
	ttl     time.Duration
	sources []Source
	gate    Gate
	logger  *log.Logger
	now     func() time.Time
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithTTL sets the freshness window for cached prices.
func WithTTL(d time.Duration) OracleOption {
	return func(o *Oracle) {
		o.ttl = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) OracleOption {
	return func(o *Oracle) {
		o.logger = l
	}
}

// withClock overrides the time source, for tests.
func withClock(now func() time.Time) OracleOption {
	return func(o *Oracle) {
		o.now = now
	}
}

// NewOracle creates a price oracle over the given source chain.
// Sources are tried in slice order; the first usable value wins.
func NewOracle(gate Gate, sources []Source, opts ...OracleOption) *Oracle {
	o := &Oracle{
		cache:   make(map[string]domain.PricePoint),
		ttl:     DefaultTTL,
		sources: sources,
		gate:    gate,
		logger:  log.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NormalizeMint folds wrapped and native representations of SOL into one
// cache key so both resolve to the same price entry.
func NormalizeMint(mint string) string {
	if mint == domain.NativeSOLPseudoMint || mint == "SOL" {
		return domain.WrappedSOLMint
	}
	return mint
}

// PriceUSD resolves the USD price for a mint.
//
// A cache hit younger than TTL is always preferred over a network call.
// On a miss or stale entry the source chain is walked through the gate; the
// first positive finite value refreshes the cache. When every source fails
// the last known value is returned marked stale; with no history the result
// is ErrUnknownPrice.
func (o *Oracle) PriceUSD(ctx context.Context, mint string) (domain.PricePoint, error) {
	key := NormalizeMint(mint)

	if pegged, ok := peggedMints[key]; ok {
		return domain.PricePoint{
			Mint:       key,
			PriceUSD:   pegged,
			ObservedAt: o.now(),
			Source:     "peg",
		}, nil
	}

	o.mu.RLock()
	cached, haveCached := o.cache[key]
	o.mu.RUnlock()

	if haveCached && cached.Age(o.now()) < o.ttl {
		observability.RecordPriceCacheLookup("fresh")
		return cached, nil
	}
	observability.RecordPriceCacheLookup("miss")

	for _, src := range o.sources {
		price, err := o.fetchOne(ctx, src, key)
		if err != nil {
			observability.RecordSourceCall(src.Name(), outcomeLabel(err))
			o.logger.Printf("price source %s failed for %s: %v", src.Name(), key, err)
			continue
		}
		observability.RecordSourceCall(src.Name(), "ok")

		point := domain.PricePoint{
			Mint:       key,
			PriceUSD:   price,
			ObservedAt: o.now(),
			Source:     src.Name(),
		}
		o.mu.Lock()
		o.cache[key] = point
		o.mu.Unlock()
		return point, nil
	}

	// Every source failed: a stale price beats no price.
	if haveCached {
		observability.RecordPriceCacheLookup("stale")
		stale := cached
		stale.Stale = true
		return stale, nil
	}

	return domain.PricePoint{}, ErrUnknownPrice
}

// fetchOne runs a single source through the gate and validates its value.
func (o *Oracle) fetchOne(ctx context.Context, src Source, mint string) (float64, error) {
	var price float64
	err := o.gate.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		price, fetchErr = src.TryFetch(ctx, mint)
		return fetchErr
	})
	if err != nil {
		return 0, err
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ErrUpstreamUnavailable
	}
	return price, nil
}

func outcomeLabel(err error) string {
	if errors.Is(err, throttle.ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
