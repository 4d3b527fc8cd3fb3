package scanner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"solana-wallet-sentinel/internal/classify"
	"solana-wallet-sentinel/internal/dedup"
	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/solana"
)

type stubLedger struct {
	mu         sync.Mutex
	signatures map[string][]solana.SignatureInfo
	txs        map[string]*domain.ParsedTransaction
	fetches    int
}

func (l *stubLedger) ListRecentSignatures(_ context.Context, address string, limit int) ([]solana.SignatureInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sigs := l.signatures[address]
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return sigs, nil
}

func (l *stubLedger) GetParsedTransaction(_ context.Context, signature string) (*domain.ParsedTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetches++
	return l.txs[signature], nil
}

type captureEvaluator struct {
	mu     sync.Mutex
	events []string // "<signature>/<kind>"
	sweeps int
}

func (c *captureEvaluator) Evaluate(_ context.Context, ev domain.Event, signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, signature+"/"+string(ev.Kind))
}

func (c *captureEvaluator) Sweep(time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweeps++
	return 0
}

func (c *captureEvaluator) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

const wallet = "WatchedWallet"

func transferTx(sig string) *domain.ParsedTransaction {
	return &domain.ParsedTransaction{
		Signature: sig,
		Instructions: []domain.ParsedInstruction{
			{Program: "spl-token", Type: domain.InstructionTransferChecked,
				Source: "Other", Destination: wallet, Mint: "MintA", UIAmount: 5},
		},
	}
}

func TestScanOnce_Idempotent(t *testing.T) {
	ledger := &stubLedger{
		signatures: map[string][]solana.SignatureInfo{
			wallet: {{Signature: "sig1"}, {Signature: "sig2"}},
		},
		txs: map[string]*domain.ParsedTransaction{
			"sig1": transferTx("sig1"),
			"sig2": transferTx("sig2"),
		},
	}
	sink := &captureEvaluator{}
	s := New([]string{wallet}, ledger, classify.New(), sink, dedup.New())

	ctx := context.Background()
	s.ScanOnce(ctx)
	s.ScanOnce(ctx) // same signatures again

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("expected 2 events total across both cycles, got %d: %v", len(events), events)
	}
	if ledger.fetches != 2 {
		t.Errorf("expected 2 transaction fetches, got %d", ledger.fetches)
	}
}

func TestScanOnce_UnavailableTransactionStaysMarked(t *testing.T) {
	ledger := &stubLedger{
		signatures: map[string][]solana.SignatureInfo{
			wallet: {{Signature: "sig1"}},
		},
		txs: map[string]*domain.ParsedTransaction{}, // not yet finalized
	}
	sink := &captureEvaluator{}
	seen := dedup.New()
	s := New([]string{wallet}, ledger, classify.New(), sink, seen)

	ctx := context.Background()
	s.ScanOnce(ctx)
	if len(sink.all()) != 0 {
		t.Fatalf("expected no events for unavailable tx, got %d", len(sink.all()))
	}

	// Later availability does not resurrect the signature.
	ledger.mu.Lock()
	ledger.txs["sig1"] = transferTx("sig1")
	ledger.mu.Unlock()
	s.ScanOnce(ctx)
	if len(sink.all()) != 0 {
		t.Errorf("signature must stay marked after a skip, got %d events", len(sink.all()))
	}
}

func TestScanOnce_MultipleWallets(t *testing.T) {
	w2 := "SecondWallet"
	ledger := &stubLedger{
		signatures: map[string][]solana.SignatureInfo{
			wallet: {{Signature: "sig1"}},
			w2:     {{Signature: "sig2"}},
		},
		txs: map[string]*domain.ParsedTransaction{
			"sig1": transferTx("sig1"),
			"sig2": {
				Signature: "sig2",
				Instructions: []domain.ParsedInstruction{
					{Program: "spl-token", Type: domain.InstructionTransfer,
						Source: "Other", Destination: w2, Mint: "MintB", UIAmount: 9},
				},
			},
		},
	}
	sink := &captureEvaluator{}
	s := New([]string{wallet, w2}, ledger, classify.New(), sink, dedup.New(),
		WithConcurrency(2))

	s.ScanOnce(context.Background())
	if len(sink.all()) != 2 {
		t.Errorf("expected one event per wallet, got %v", sink.all())
	}
}

func TestRun_LiveFeedAndSweep(t *testing.T) {
	ledger := &stubLedger{
		signatures: map[string][]solana.SignatureInfo{wallet: nil},
		txs: map[string]*domain.ParsedTransaction{
			"live1": transferTx("live1"),
		},
	}
	sink := &captureEvaluator{}
	feed := make(chan solana.WalletSignature, 1)
	s := New([]string{wallet}, ledger, classify.New(), sink, dedup.New(),
		WithScanInterval(time.Hour),
		WithSweepInterval(20*time.Millisecond),
		WithLiveFeed(feed))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	feed <- solana.WalletSignature{Wallet: wallet, Signature: "live1"}

	deadline := time.After(2 * time.Second)
	for len(sink.all()) == 0 {
		select {
		case <-deadline:
			t.Fatal("live signature never processed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	for {
		sink.mu.Lock()
		sweeps := sink.sweeps
		sink.mu.Unlock()
		if sweeps > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("sweep never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

// blockingLedger stalls every transaction fetch until gate closes.
type blockingLedger struct {
	stubLedger
	gate chan struct{}
}

func (l *blockingLedger) GetParsedTransaction(ctx context.Context, signature string) (*domain.ParsedTransaction, error) {
	<-l.gate
	return l.stubLedger.GetParsedTransaction(ctx, signature)
}

func TestRun_LiveFloodIsBounded(t *testing.T) {
	ledger := &blockingLedger{gate: make(chan struct{})}
	ledger.signatures = map[string][]solana.SignatureInfo{wallet: nil}
	ledger.txs = map[string]*domain.ParsedTransaction{}
	sink := &captureEvaluator{}
	feed := make(chan solana.WalletSignature, 32)
	s := New([]string{wallet}, ledger, classify.New(), sink, dedup.New(),
		WithScanInterval(time.Hour),
		WithSweepInterval(time.Hour),
		WithConcurrency(1),
		WithLiveFeed(feed))
	s.liveBacklog = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Flood one wallet while its fetch is stalled. Only the in-flight
	// signature and the backlog slot may survive; the rest are dropped
	// for the next poll scan to pick up.
	for i := 0; i < 20; i++ {
		feed <- solana.WalletSignature{Wallet: wallet, Signature: fmt.Sprintf("flood%d", i)}
	}
	time.Sleep(50 * time.Millisecond)
	close(ledger.gate)
	time.Sleep(50 * time.Millisecond)

	ledger.mu.Lock()
	fetches := ledger.fetches
	ledger.mu.Unlock()
	if fetches == 0 {
		t.Error("expected at least one live signature processed")
	}
	if fetches > 2 {
		t.Errorf("expected at most in-flight plus backlog fetches, got %d", fetches)
	}

	cancel()
	<-done
}
