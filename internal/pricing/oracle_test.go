package pricing

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"solana-wallet-sentinel/internal/domain"
)

// passGate releases every call immediately; pacing is covered by the
// throttle package's own tests.
type passGate struct{}

func (passGate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSource struct {
	name  string
	price float64
	err   error
	calls atomic.Int64
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) TryFetch(ctx context.Context, mint string) (float64, error) {
	s.calls.Add(1)
	return s.price, s.err
}

func TestOracle_FallbackChain(t *testing.T) {
	src1 := &fakeSource{name: "one", err: ErrUpstreamUnavailable}
	src2 := &fakeSource{name: "two", err: ErrUpstreamUnavailable}
	src3 := &fakeSource{name: "three", price: 42.0}

	o := NewOracle(passGate{}, []Source{src1, src2, src3})
	ctx := context.Background()

	p, err := o.PriceUSD(ctx, "MintA")
	if err != nil {
		t.Fatalf("PriceUSD: %v", err)
	}
	if p.PriceUSD != 42.0 {
		t.Errorf("expected 42.0, got %v", p.PriceUSD)
	}
	if p.Source != "three" {
		t.Errorf("expected source three, got %s", p.Source)
	}

	// Within TTL the cache serves without touching any source.
	if _, err := o.PriceUSD(ctx, "MintA"); err != nil {
		t.Fatalf("cached PriceUSD: %v", err)
	}
	if src1.calls.Load() != 1 || src3.calls.Load() != 1 {
		t.Errorf("cache hit still invoked sources: %d/%d calls", src1.calls.Load(), src3.calls.Load())
	}
}

func TestOracle_StaleBetterThanNone(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	src := &fakeSource{name: "one", price: 10.0}
	o := NewOracle(passGate{}, []Source{src}, WithTTL(time.Minute), withClock(clock))
	ctx := context.Background()

	if _, err := o.PriceUSD(ctx, "MintA"); err != nil {
		t.Fatalf("seed PriceUSD: %v", err)
	}

	// Age the cache past TTL and break the source.
	now = now.Add(2 * time.Minute)
	src.price = 0
	src.err = ErrUpstreamUnavailable

	p, err := o.PriceUSD(ctx, "MintA")
	if err != nil {
		t.Fatalf("expected stale value, got error: %v", err)
	}
	if p.PriceUSD != 10.0 {
		t.Errorf("expected stale 10.0, got %v", p.PriceUSD)
	}
	if !p.Stale {
		t.Error("expected Stale flag on served value")
	}
}

func TestOracle_UnknownWhenNoHistory(t *testing.T) {
	src := &fakeSource{name: "one", err: ErrUpstreamUnavailable}
	o := NewOracle(passGate{}, []Source{src})

	_, err := o.PriceUSD(context.Background(), "MintA")
	if !errors.Is(err, ErrUnknownPrice) {
		t.Fatalf("expected ErrUnknownPrice, got %v", err)
	}
}

func TestOracle_NonPositiveRejected(t *testing.T) {
	src1 := &fakeSource{name: "one", price: -3.0}
	src2 := &fakeSource{name: "two", price: 7.0}
	o := NewOracle(passGate{}, []Source{src1, src2})

	p, err := o.PriceUSD(context.Background(), "MintA")
	if err != nil {
		t.Fatalf("PriceUSD: %v", err)
	}
	if p.PriceUSD != 7.0 {
		t.Errorf("expected the chain to skip the non-positive value, got %v", p.PriceUSD)
	}
}

func TestOracle_NonFiniteRejected(t *testing.T) {
	// NaN compares false against everything, so a plain <= 0 check would
	// let it through and cache it for the TTL window.
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		src1 := &fakeSource{name: "one", price: bad}
		src2 := &fakeSource{name: "two", price: 7.0}
		o := NewOracle(passGate{}, []Source{src1, src2})

		p, err := o.PriceUSD(context.Background(), "MintA")
		if err != nil {
			t.Fatalf("PriceUSD with %v source: %v", bad, err)
		}
		if p.PriceUSD != 7.0 || p.Source != "two" {
			t.Errorf("expected the chain to skip %v, got %+v", bad, p)
		}
	}
}

func TestOracle_PeggedStablecoin(t *testing.T) {
	src := &fakeSource{name: "one", price: 99.0}
	o := NewOracle(passGate{}, []Source{src})

	p, err := o.PriceUSD(context.Background(), domain.USDCMint)
	if err != nil {
		t.Fatalf("PriceUSD: %v", err)
	}
	if p.PriceUSD != 1.0 || p.Source != "peg" {
		t.Errorf("expected pegged 1.0, got %+v", p)
	}
	if src.calls.Load() != 0 {
		t.Error("pegged mint must bypass the network chain")
	}
}

func TestNormalizeMint(t *testing.T) {
	if NormalizeMint(domain.NativeSOLPseudoMint) != domain.WrappedSOLMint {
		t.Error("native SOL pseudo-mint must normalize to wrapped SOL")
	}
	if NormalizeMint(domain.WrappedSOLMint) != domain.WrappedSOLMint {
		t.Error("wrapped SOL must map to itself")
	}
	if NormalizeMint("OtherMint") != "OtherMint" {
		t.Error("other mints must pass through")
	}
}

func TestOracle_SharedKeyForWrappedAndNative(t *testing.T) {
	src := &fakeSource{name: "one", price: 150.0}
	o := NewOracle(passGate{}, []Source{src})
	ctx := context.Background()

	if _, err := o.PriceUSD(ctx, domain.WrappedSOLMint); err != nil {
		t.Fatalf("PriceUSD wrapped: %v", err)
	}
	if _, err := o.PriceUSD(ctx, domain.NativeSOLPseudoMint); err != nil {
		t.Fatalf("PriceUSD native: %v", err)
	}
	if src.calls.Load() != 1 {
		t.Errorf("wrapped and native SOL should share one cache entry, got %d source calls", src.calls.Load())
	}
}
