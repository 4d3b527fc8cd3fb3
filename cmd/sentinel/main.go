package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-wallet-sentinel/internal/alert"
	"solana-wallet-sentinel/internal/classify"
	"solana-wallet-sentinel/internal/config"
	"solana-wallet-sentinel/internal/dedup"
	"solana-wallet-sentinel/internal/observability"
	"solana-wallet-sentinel/internal/pricing"
	"solana-wallet-sentinel/internal/registry"
	"solana-wallet-sentinel/internal/scanner"
	"solana-wallet-sentinel/internal/significance"
	"solana-wallet-sentinel/internal/solana"
	"solana-wallet-sentinel/internal/storage"
	"solana-wallet-sentinel/internal/storage/memory"
	"solana-wallet-sentinel/internal/storage/migrations"
	pgstore "solana-wallet-sentinel/internal/storage/postgres"
	"solana-wallet-sentinel/internal/throttle"
)

func main() {
	// Flags override environment configuration.
	wallets := flag.String("wallets", "", "Comma-separated wallet addresses to watch")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (enables live mode)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for the alert journal")
	swapThreshold := flag.Float64("swap-threshold", 0, "Large-swap USD threshold")
	minBuyWallets := flag.Int("min-buy-wallets", 0, "Distinct wallets required for a coordinated-buy alert")
	scanInterval := flag.Duration("scan-interval", 0, "Scan cadence")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to use METRICS_ADDR)")

	flag.Parse()

	logger := log.New(os.Stdout, "[sentinel] ", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig(*wallets, *rpcEndpoint, *wsEndpoint, *postgresDSN,
		*swapThreshold, *minBuyWallets, *scanInterval, *metricsAddr)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	logger.Printf("Watching %d wallets, swap threshold $%.0f, min buy wallets %d",
		len(cfg.Wallets), cfg.SwapThresholdUSD, cfg.MinBuyWallets)

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	if err := run(ctx, logger, cfg); err != nil && err != context.Canceled {
		close(done)
		logger.Fatalf("Error: %v", err)
	}

	close(done)
	logger.Println("Shutdown complete")
}

// run wires the pipeline and blocks until ctx is cancelled.
func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	gate := throttle.NewGate(
		throttle.WithMinSpacing(cfg.ThrottleSpacing),
		throttle.WithPerMinuteQuota(cfg.ThrottlePerMinute),
	)
	defer gate.Close()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)

	dexScreener := pricing.NewDexScreenerSource("", nil)
	oracle := pricing.NewOracle(gate, []pricing.Source{
		pricing.NewJupiterSource("", nil),
		dexScreener,
		pricing.NewCoinGeckoSource("", nil),
	}, pricing.WithTTL(cfg.PriceTTL), pricing.WithLogger(logger))

	reg := registry.New(gate, []registry.Source{
		registry.NewTokenListSource("", nil),
		registry.NewOnChainSource(rpc),
	}, registry.WithScamMints(cfg.ScamMints), registry.WithLogger(logger))

	guard := dedup.New()

	journal, closeJournal, err := openJournal(ctx, logger, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer closeJournal()

	dispatcher := alert.NewDispatcher(buildSinks(logger, cfg),
		alert.WithJournal(journal),
		alert.WithDispatcherLogger(logger))

	engine := significance.New(oracle, reg, guard, dispatcher,
		significance.WithSwapThresholdUSD(cfg.SwapThresholdUSD),
		significance.WithMinWallets(cfg.MinBuyWallets),
		significance.WithLiquidityProber(dexScreener),
		significance.WithLogger(logger))

	scanOpts := []scanner.Option{
		scanner.WithScanInterval(cfg.ScanInterval),
		scanner.WithSweepInterval(cfg.SweepInterval),
		scanner.WithSignatureLimit(cfg.SignatureLimit),
		scanner.WithConcurrency(cfg.ScanConcurrency),
		scanner.WithLogger(logger),
	}

	if cfg.WSEndpoint != "" {
		watcher, err := solana.NewWSWatcher(ctx, cfg.WSEndpoint, nil, logger)
		if err != nil {
			// Live mode is an optimization over polling, not a requirement.
			logger.Printf("WebSocket watcher unavailable, polling only: %v", err)
		} else {
			defer watcher.Close()
			for _, w := range cfg.Wallets {
				if err := watcher.WatchWallet(ctx, w); err != nil {
					logger.Printf("subscribe to %s: %v", w, err)
				}
			}
			scanOpts = append(scanOpts, scanner.WithLiveFeed(watcher.Signatures()))
			logger.Printf("Live mode enabled via %s", cfg.WSEndpoint)
		}
	}

	s := scanner.New(cfg.Wallets, rpc, classify.New(classify.WithLogger(logger)), engine, guard, scanOpts...)
	s.Run(ctx)
	return ctx.Err()
}

// openJournal returns the alert store: PostgreSQL when a DSN is
// configured, process memory otherwise.
func openJournal(ctx context.Context, logger *log.Logger, dsn string) (storage.AlertStore, func(), error) {
	if dsn == "" {
		logger.Println("Alert journal: in-memory")
		return memory.NewAlertStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Println("Alert journal: PostgreSQL")
	return pgstore.NewAlertStore(pool), pool.Close, nil
}

// buildSinks assembles the configured alert sinks. The log sink is always
// present.
func buildSinks(logger *log.Logger, cfg *config.Config) []alert.Sink {
	sinks := []alert.Sink{alert.NewLogSink(logger)}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, alert.NewWebhookSink(cfg.WebhookURL, nil))
	}
	if cfg.TelegramBotToken != "" {
		sinks = append(sinks, alert.NewTelegramSink("", cfg.TelegramBotToken, cfg.TelegramChatID, nil))
	}
	return sinks
}

// loadConfig loads env configuration and applies flag overrides.
func loadConfig(wallets, rpcEndpoint, wsEndpoint, postgresDSN string,
	swapThreshold float64, minBuyWallets int, scanInterval time.Duration,
	metricsAddr string) (*config.Config, error) {

	if wallets != "" {
		os.Setenv("WATCH_WALLETS", strings.TrimSpace(wallets))
	}
	if rpcEndpoint != "" {
		os.Setenv("SOLANA_RPC_URL", rpcEndpoint)
	}
	if wsEndpoint != "" {
		os.Setenv("SOLANA_WS_URL", wsEndpoint)
	}
	if postgresDSN != "" {
		os.Setenv("POSTGRES_DSN", postgresDSN)
	}
	if metricsAddr != "" {
		os.Setenv("METRICS_ADDR", metricsAddr)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if swapThreshold > 0 {
		cfg.SwapThresholdUSD = swapThreshold
	}
	if minBuyWallets >= 2 {
		cfg.MinBuyWallets = minBuyWallets
	}
	if scanInterval > 0 {
		cfg.ScanInterval = scanInterval
	}
	return cfg, nil
}
