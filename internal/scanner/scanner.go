// Package scanner drives the pipeline: on a fixed cadence it lists recent
// signatures for every watched wallet, filters already-seen ones, fetches
// and classifies each transaction, and hands the events to the
// significance engine. An optional live feed from the WebSocket watcher
// runs the same per-wallet pipeline between scans.
package scanner

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"solana-wallet-sentinel/internal/classify"
	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/observability"
	"solana-wallet-sentinel/internal/solana"
)

// Default configuration values.
const (
	DefaultScanInterval   = 60 * time.Second
	DefaultSweepInterval  = 6 * time.Hour
	DefaultSignatureLimit = 25
	DefaultConcurrency    = 4

	// Pending live signatures beyond this are dropped; the next poll
	// scan picks them up.
	defaultLiveBacklog = 256
)

// LedgerClient reads the chain. Satisfied by solana.HTTPClient.
type LedgerClient interface {
	ListRecentSignatures(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error)
	GetParsedTransaction(ctx context.Context, signature string) (*domain.ParsedTransaction, error)
}

// Classifier derives events from a transaction. Satisfied by
// classify.Classifier.
type Classifier interface {
	Classify(tx *domain.ParsedTransaction, wallet string) ([]domain.Event, error)
}

// Evaluator consumes classified events and owns the sweep state.
// Satisfied by significance.Engine.
type Evaluator interface {
	Evaluate(ctx context.Context, ev domain.Event, signature string)
	Sweep(now time.Time) int
}

// SeenFilter is the signature-level idempotence guard. Satisfied by
// dedup.Deduplicator.
type SeenFilter interface {
	ShouldProcess(signature string) bool
}

// Scanner owns the scan and sweep loops. All shared state is injected.
type Scanner struct {
	wallets    []string
	ledger     LedgerClient
	classifier Classifier
	evaluator  Evaluator
	seen       SeenFilter
	logger     *log.Logger

	scanInterval  time.Duration
	sweepInterval time.Duration
	sigLimit      int
	concurrency   int

	live        <-chan solana.WalletSignature // nil when live mode is off
	liveBacklog int

	// Serializes processing per wallet so bucket updates from one
	// wallet stay causally ordered.
	walletMu map[string]*sync.Mutex
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithScanInterval sets the scan cadence.
func WithScanInterval(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.scanInterval = d
		}
	}
}

// WithSweepInterval sets the significance sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithSignatureLimit sets how many recent signatures each scan lists.
func WithSignatureLimit(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.sigLimit = n
		}
	}
}

// WithConcurrency bounds how many wallets scan in parallel.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLiveFeed attaches the WebSocket signature feed.
func WithLiveFeed(feed <-chan solana.WalletSignature) Option {
	return func(s *Scanner) {
		s.live = feed
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner over a fixed wallet set.
func New(wallets []string, ledger LedgerClient, classifier Classifier, evaluator Evaluator, seen SeenFilter, opts ...Option) *Scanner {
	s := &Scanner{
		wallets:       wallets,
		ledger:        ledger,
		classifier:    classifier,
		evaluator:     evaluator,
		seen:          seen,
		logger:        log.Default(),
		scanInterval:  DefaultScanInterval,
		sweepInterval: DefaultSweepInterval,
		sigLimit:      DefaultSignatureLimit,
		concurrency:   DefaultConcurrency,
		liveBacklog:   defaultLiveBacklog,
		walletMu:      make(map[string]*sync.Mutex, len(wallets)),
	}
	for _, w := range wallets {
		s.walletMu[w] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled, scanning on the configured cadence.
// The first scan starts immediately.
func (s *Scanner) Run(ctx context.Context) {
	observability.DefaultMetrics.WalletsWatched.Set(float64(len(s.wallets)))

	scanTicker := time.NewTicker(s.scanInterval)
	defer scanTicker.Stop()
	sweepTicker := time.NewTicker(s.sweepInterval)
	defer sweepTicker.Stop()

	// Live signatures go through a bounded queue drained by a fixed pool
	// of workers, so a flooding wallet cannot pile up goroutines behind
	// its mutex.
	var liveQueue chan solana.WalletSignature
	if s.live != nil {
		liveQueue = make(chan solana.WalletSignature, s.liveBacklog)
		var workers sync.WaitGroup
		for i := 0; i < s.concurrency; i++ {
			workers.Add(1)
			go func() {
				defer workers.Done()
				for {
					select {
					case <-ctx.Done():
						return
					case sig := <-liveQueue:
						s.processLive(ctx, sig)
					}
				}
			}()
		}
		defer workers.Wait()
	}

	s.ScanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-scanTicker.C:
			s.ScanOnce(ctx)
		case <-sweepTicker.C:
			s.evaluator.Sweep(time.Now())
		case sig, ok := <-s.live:
			if !ok {
				s.live = nil
				continue
			}
			select {
			case liveQueue <- sig:
			default:
				observability.RecordSignatureSkipped("live_backlog")
			}
		}
	}
}

// ScanOnce runs one full scan cycle across all wallets with bounded
// parallelism and returns when every wallet finished.
func (s *Scanner) ScanOnce(ctx context.Context) {
	start := time.Now()

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, wallet := range s.wallets {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(wallet string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.scanWallet(ctx, wallet)
		}(wallet)
	}
	wg.Wait()

	observability.DefaultMetrics.ScanDuration.Observe(time.Since(start).Seconds())
}

// scanWallet processes one wallet's recent signatures sequentially.
func (s *Scanner) scanWallet(ctx context.Context, wallet string) {
	mu := s.walletMu[wallet]
	mu.Lock()
	defer mu.Unlock()

	sigs, err := s.ledger.ListRecentSignatures(ctx, wallet, s.sigLimit)
	if err != nil {
		s.logger.Printf("list signatures for %s: %v", wallet, err)
		return
	}

	for _, sig := range sigs {
		if ctx.Err() != nil {
			return
		}
		s.processSignature(ctx, wallet, sig.Signature)
	}
}

// processLive feeds one observed signature through the same pipeline,
// serialized against scans of the same wallet.
func (s *Scanner) processLive(ctx context.Context, sig solana.WalletSignature) {
	mu, ok := s.walletMu[sig.Wallet]
	if !ok {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	s.processSignature(ctx, sig.Wallet, sig.Signature)
}

// processSignature runs one signature to completion: dedup, fetch,
// classify, evaluate. The signature is marked seen before any downstream
// work, so a failure cannot cause a duplicate alert later.
func (s *Scanner) processSignature(ctx context.Context, wallet, signature string) {
	if !s.seen.ShouldProcess(signature) {
		observability.RecordSignatureSkipped("seen")
		return
	}

	tx, err := s.ledger.GetParsedTransaction(ctx, signature)
	if err != nil {
		observability.RecordSignatureSkipped("fetch_error")
		s.logger.Printf("fetch transaction %s: %v", signature, err)
		return
	}
	if tx == nil {
		// Pruned or not yet finalized. Stays marked seen.
		observability.RecordSignatureSkipped("unavailable")
		return
	}

	events, err := s.classifier.Classify(tx, wallet)
	if err != nil {
		if errors.Is(err, classify.ErrMalformedTransaction) {
			observability.RecordSignatureSkipped("malformed")
		} else {
			observability.RecordSignatureSkipped("classify_error")
		}
		s.logger.Printf("classify %s: %v", signature, err)
		return
	}

	for _, ev := range events {
		observability.RecordEventClassified(string(ev.Kind))
		s.evaluator.Evaluate(ctx, ev, signature)
	}
	observability.RecordSignatureProcessed()
}
