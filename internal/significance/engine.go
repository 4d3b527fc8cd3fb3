// Package significance decides which classified events are worth alerting
// on: single swaps above a USD threshold, and coordinated buying of one
// token by several watched wallets within a calendar day.
package significance

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/idhash"
	"solana-wallet-sentinel/internal/observability"
)

// Default configuration values.
const (
	DefaultSwapThresholdUSD = 2500.0
	DefaultMinWallets       = 3

	// A bought token whose pool liquidity is under this multiple of the
	// swap value gets a low-liquidity warning on the alert.
	lowLiquidityFactor = 10.0
)

// PriceSource resolves USD prices. Satisfied by pricing.Oracle.
type PriceSource interface {
	PriceUSD(ctx context.Context, mint string) (domain.PricePoint, error)
}

// IdentityResolver resolves token identity. Satisfied by registry.Registry.
type IdentityResolver interface {
	Resolve(ctx context.Context, mint string) domain.TokenIdentity
}

// LiquidityProber reports pool liquidity for a mint. Satisfied by
// pricing.DexScreenerSource. Optional.
type LiquidityProber interface {
	PairLiquidityUSD(ctx context.Context, mint string) (float64, error)
}

// AlertGuard is the once-per-window guard. Satisfied by dedup.Deduplicator.
type AlertGuard interface {
	MarkAlerted(key string) bool
	ResetAlerts()
}

// Notifier receives emitted alerts. Satisfied by alert.Dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, rec domain.AlertRecord)
}

type bucketKey struct {
	day  string // UTC calendar day, 2006-01-02
	mint string
}

// bucket accumulates one day's incoming transfers of one mint.
type bucket struct {
	identity    domain.TokenIdentity
	wallets     map[string]struct{}
	totalAmount float64
	firstPrice  float64
	lastPrice   float64
	hasPrice    bool
}

// Engine is the stateful significance detector. All state is process
// memory and intentionally lost on restart.
type Engine struct {
	prices    PriceSource
	registry  IdentityResolver
	liquidity LiquidityProber
	guard     AlertGuard
	notifier  Notifier
	logger    *log.Logger
	now       func() time.Time

	swapThresholdUSD float64
	minWallets       int

	mu         sync.Mutex
	buckets    map[bucketKey]*bucket
	sweepEpoch uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSwapThresholdUSD sets the large-swap USD threshold.
func WithSwapThresholdUSD(v float64) Option {
	return func(e *Engine) {
		if v > 0 {
			e.swapThresholdUSD = v
		}
	}
}

// WithMinWallets sets the distinct-wallet minimum for a coordinated-buy
// alert. Values under 2 are ignored.
func WithMinWallets(n int) Option {
	return func(e *Engine) {
		if n >= 2 {
			e.minWallets = n
		}
	}
}

// WithLiquidityProber enables the low-liquidity annotation on swap alerts.
func WithLiquidityProber(p LiquidityProber) Option {
	return func(e *Engine) {
		e.liquidity = p
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// withClock overrides the clock, for tests.
func withClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine.
func New(prices PriceSource, registry IdentityResolver, guard AlertGuard, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		prices:           prices,
		registry:         registry,
		guard:            guard,
		notifier:         notifier,
		logger:           log.Default(),
		now:              time.Now,
		swapThresholdUSD: DefaultSwapThresholdUSD,
		minWallets:       DefaultMinWallets,
		buckets:          make(map[bucketKey]*bucket),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one classified event through the detector, emitting at
// most one alert. signature is the transaction that produced the event.
func (e *Engine) Evaluate(ctx context.Context, ev domain.Event, signature string) {
	switch ev.Kind {
	case domain.EventKindTransfer:
		e.evaluateTransfer(ctx, ev.Transfer)
	case domain.EventKindSwap:
		e.evaluateSwap(ctx, ev.Swap, signature)
	}
}

// evaluateTransfer folds an incoming transfer into its (day, mint) bucket
// and fires the coordinated-buy alert on the transition to minWallets
// distinct wallets. The bucket keeps accumulating silently afterwards.
func (e *Engine) evaluateTransfer(ctx context.Context, t *domain.Transfer) {
	if !t.IsIncoming {
		return
	}

	identity := e.registry.Resolve(ctx, t.Mint)
	price, priceErr := e.prices.PriceUSD(ctx, t.Mint)

	day := e.now().UTC().Format("2006-01-02")
	key := bucketKey{day: day, mint: t.Mint}

	e.mu.Lock()
	b, ok := e.buckets[key]
	if !ok {
		b = &bucket{identity: identity, wallets: make(map[string]struct{})}
		e.buckets[key] = b
	}
	b.wallets[t.Wallet] = struct{}{}
	b.totalAmount += t.UIAmount
	if priceErr == nil {
		if !b.hasPrice {
			b.firstPrice = price.PriceUSD
			b.hasPrice = true
		}
		b.lastPrice = price.PriceUSD
	}
	walletCount := len(b.wallets)
	total := b.totalAmount
	first, last := b.firstPrice, b.lastPrice
	epoch := e.sweepEpoch
	observability.DefaultMetrics.BucketsActive.Set(float64(len(e.buckets)))
	e.mu.Unlock()

	if walletCount < e.minWallets {
		return
	}
	if !e.guard.MarkAlerted("coordinated:" + t.Mint) {
		return
	}

	drift := ""
	if first > 0 {
		drift = fmt.Sprintf(", price drift %+.1f%%", (last-first)/first*100)
	}
	msg := fmt.Sprintf("COORDINATED BUY: %s (%s) bought by %d wallets today, total %s %s%s",
		identity.Symbol, t.Mint, walletCount, formatAmount(total), identity.Symbol, drift)

	valueUSD := 0.0
	if last > 0 {
		valueUSD = total * last
	}
	// The sweep epoch distinguishes re-alerts after the alerted-window
	// reset; the day alone would collide in the journal.
	window := fmt.Sprintf("%s#%d", day, epoch)
	e.emit(ctx, domain.AlertRecord{
		AlertID:  idhash.ComputeAlertID(domain.AlertKindCoordinatedBuy, t.Mint, "", "", window),
		Kind:     domain.AlertKindCoordinatedBuy,
		Mint:     t.Mint,
		ValueUSD: valueUSD,
		Message:  msg,
	})
}

// evaluateSwap values a swap in USD and fires the large-swap alert when
// the value crosses the threshold. The sold leg's price is preferred; the
// bought leg is the fallback. Both legs unknown means the swap is
// conservatively treated as below threshold.
func (e *Engine) evaluateSwap(ctx context.Context, s *domain.Swap, signature string) {
	valueUSD, ok := e.swapValueUSD(ctx, s)
	if !ok {
		e.logger.Printf("swap %s: no price for either leg, skipping", signature)
		return
	}
	if valueUSD < e.swapThresholdUSD {
		return
	}

	soldID := e.registry.Resolve(ctx, s.SoldMint)
	boughtID := e.registry.Resolve(ctx, s.BoughtMint)

	msg := fmt.Sprintf("LARGE SWAP: %s sold %s %s for %s %s (~$%.2f)",
		s.Wallet, formatAmount(s.SoldAmount), soldID.Symbol,
		formatAmount(s.BoughtAmount), boughtID.Symbol, valueUSD)

	if e.liquidity != nil {
		if liq, err := e.liquidity.PairLiquidityUSD(ctx, s.BoughtMint); err == nil && liq < valueUSD*lowLiquidityFactor {
			msg += fmt.Sprintf(" | WARNING: low liquidity ($%.0f in pools)", liq)
		}
	}
	// A warning only: a flagged token never suppresses the alert.
	if boughtID.IsScam {
		msg += " | WARNING: bought token is flagged as scam"
	}

	e.emit(ctx, domain.AlertRecord{
		AlertID:   idhash.ComputeAlertID(domain.AlertKindLargeSwap, s.BoughtMint, s.Wallet, signature, ""),
		Kind:      domain.AlertKindLargeSwap,
		Mint:      s.BoughtMint,
		Wallet:    s.Wallet,
		Signature: signature,
		ValueUSD:  valueUSD,
		Message:   msg,
	})
}

// swapValueUSD returns the swap's USD value and whether any leg had a
// known price.
func (e *Engine) swapValueUSD(ctx context.Context, s *domain.Swap) (float64, bool) {
	if p, err := e.prices.PriceUSD(ctx, s.SoldMint); err == nil {
		return s.SoldAmount * p.PriceUSD, true
	}
	if p, err := e.prices.PriceUSD(ctx, s.BoughtMint); err == nil {
		return s.BoughtAmount * p.PriceUSD, true
	}
	return 0, false
}

func (e *Engine) emit(ctx context.Context, rec domain.AlertRecord) {
	rec.CreatedAt = e.now().UnixMilli()
	observability.RecordAlertEmitted(string(rec.Kind))
	e.notifier.Dispatch(ctx, rec)
}

// Sweep evicts buckets whose day is neither today nor yesterday and
// clears the alerted-mint window, letting evicted mints re-qualify.
// Returns the number of buckets evicted.
func (e *Engine) Sweep(now time.Time) int {
	today := now.UTC().Format("2006-01-02")
	yesterday := now.UTC().AddDate(0, 0, -1).Format("2006-01-02")

	e.mu.Lock()
	evicted := 0
	for key := range e.buckets {
		if key.day != today && key.day != yesterday {
			delete(e.buckets, key)
			evicted++
		}
	}
	e.guard.ResetAlerts()
	e.sweepEpoch++
	observability.DefaultMetrics.BucketsActive.Set(float64(len(e.buckets)))
	e.mu.Unlock()

	observability.RecordSweep(evicted)
	if evicted > 0 {
		e.logger.Printf("sweep evicted %d buckets", evicted)
	}
	return evicted
}

// BucketCount returns the number of live buckets.
func (e *Engine) BucketCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buckets)
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.4f", v)
}
