// Package config handles loading and validating configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"solana-wallet-sentinel/internal/solana"
)

// Config holds all configuration values for the sentinel.
type Config struct {
	// Watched wallets
	Wallets []string

	// Solana RPC
	RPCEndpoint string
	WSEndpoint  string // empty disables live mode

	// Detection thresholds
	SwapThresholdUSD float64
	MinBuyWallets    int

	// Pricing
	PriceTTL time.Duration

	// Scanning
	ScanInterval    time.Duration
	SignatureLimit  int
	ScanConcurrency int
	SweepInterval   time.Duration

	// Throttle
	ThrottleSpacing   time.Duration
	ThrottlePerMinute int

	// Alerting
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string

	// Scam list: comma-separated mint addresses
	ScamMints []string

	// Journal
	PostgresDSN string // empty disables the alert journal

	// Metrics / health HTTP server
	MetricsAddr string
}

// Load reads configuration from environment variables with fallback to a
// .env file. Priority order: environment variables > .env file > defaults.
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Wallets: splitList(getEnv("WATCH_WALLETS", "")),

		RPCEndpoint: getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		WSEndpoint:  getEnv("SOLANA_WS_URL", ""),

		SwapThresholdUSD: getEnvFloat("SWAP_THRESHOLD_USD", 2500),
		MinBuyWallets:    getEnvInt("MIN_BUY_WALLETS", 3),

		PriceTTL: time.Duration(getEnvInt("PRICE_TTL_SECONDS", 300)) * time.Second,

		ScanInterval:    time.Duration(getEnvInt("SCAN_INTERVAL_SECONDS", 60)) * time.Second,
		SignatureLimit:  getEnvInt("SIGNATURE_LIMIT", 25),
		ScanConcurrency: getEnvInt("SCAN_CONCURRENCY", 4),
		SweepInterval:   time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 360)) * time.Minute,

		ThrottleSpacing:   time.Duration(getEnvInt("THROTTLE_SPACING_MS", 1000)) * time.Millisecond,
		ThrottlePerMinute: getEnvInt("THROTTLE_PER_MINUTE", 0),

		WebhookURL:       getEnv("ALERT_WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		ScamMints: splitList(getEnv("SCAM_MINTS", "")),

		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if len(c.Wallets) == 0 {
		return fmt.Errorf("WATCH_WALLETS is required")
	}
	for _, w := range c.Wallets {
		if err := solana.ValidateWalletAddress(w); err != nil {
			return fmt.Errorf("WATCH_WALLETS entry %q: %w", w, err)
		}
	}

	if c.RPCEndpoint == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}

	if c.SwapThresholdUSD <= 0 {
		return fmt.Errorf("SWAP_THRESHOLD_USD must be positive")
	}

	if c.MinBuyWallets < 2 {
		return fmt.Errorf("MIN_BUY_WALLETS must be at least 2")
	}

	if c.ScanConcurrency < 1 {
		return fmt.Errorf("SCAN_CONCURRENCY must be at least 1")
	}

	if c.SignatureLimit < 1 {
		return fmt.Errorf("SIGNATURE_LIMIT must be at least 1")
	}

	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return nil
}

// MaskedTelegramToken returns the bot token with most characters hidden
// for logging.
func (c *Config) MaskedTelegramToken() string {
	return maskSecret(c.TelegramBotToken)
}

// MaskedPostgresDSN returns the DSN with most characters hidden for logging.
func (c *Config) MaskedPostgresDSN() string {
	return maskSecret(c.PostgresDSN)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// splitList parses a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
