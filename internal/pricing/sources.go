package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"solana-wallet-sentinel/internal/domain"
)

const maxResponseBytes = 10 << 20

// JupiterSource fetches prices from the Jupiter price API.
type JupiterSource struct {
	baseURL string
	client  *http.Client
}

// NewJupiterSource creates a Jupiter price source. An empty baseURL uses the
// public endpoint.
func NewJupiterSource(baseURL string, client *http.Client) *JupiterSource {
	if baseURL == "" {
		baseURL = "https://api.jup.ag/price/v2"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JupiterSource{baseURL: baseURL, client: client}
}

func (s *JupiterSource) Name() string { return "jupiter" }

func (s *JupiterSource) TryFetch(ctx context.Context, mint string) (float64, error) {
	body, err := getJSON(ctx, s.client, fmt.Sprintf("%s?ids=%s", s.baseURL, mint), nil)
	if err != nil {
		return 0, err
	}

	var result struct {
		Data map[string]struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	entry, ok := result.Data[mint]
	if !ok {
		return 0, fmt.Errorf("%w: mint %s not in response", ErrUpstreamUnavailable, mint)
	}
	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad price %q", ErrUpstreamUnavailable, entry.Price)
	}
	return price, nil
}

// DexScreenerSource fetches prices from the DexScreener pairs API. The pair
// with the highest USD liquidity wins, which also makes this source the
// liquidity prober for the low-liquidity swap annotation.
type DexScreenerSource struct {
	baseURL string
	client  *http.Client
}

// NewDexScreenerSource creates a DexScreener source. An empty baseURL uses
// the public endpoint.
func NewDexScreenerSource(baseURL string, client *http.Client) *DexScreenerSource {
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com/latest/dex/tokens"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DexScreenerSource{baseURL: baseURL, client: client}
}

func (s *DexScreenerSource) Name() string { return "dexscreener" }

func (s *DexScreenerSource) TryFetch(ctx context.Context, mint string) (float64, error) {
	price, _, err := s.bestPair(ctx, mint)
	return price, err
}

// PairLiquidityUSD returns the USD liquidity of the deepest pair for a mint.
func (s *DexScreenerSource) PairLiquidityUSD(ctx context.Context, mint string) (float64, error) {
	_, liquidity, err := s.bestPair(ctx, mint)
	return liquidity, err
}

func (s *DexScreenerSource) bestPair(ctx context.Context, mint string) (price, liquidity float64, err error) {
	body, err := getJSON(ctx, s.client, fmt.Sprintf("%s/%s", s.baseURL, mint), nil)
	if err != nil {
		return 0, 0, err
	}

	var result struct {
		Pairs []struct {
			PriceUSD  string `json:"priceUsd"`
			Liquidity struct {
				USD float64 `json:"usd"`
			} `json:"liquidity"`
		} `json:"pairs"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if len(result.Pairs) == 0 {
		return 0, 0, fmt.Errorf("%w: no pairs for %s", ErrUpstreamUnavailable, mint)
	}

	// Pick the highest-liquidity pair
	for _, p := range result.Pairs {
		v, parseErr := strconv.ParseFloat(p.PriceUSD, 64)
		if parseErr != nil || v <= 0 {
			continue
		}
		if p.Liquidity.USD >= liquidity {
			price = v
			liquidity = p.Liquidity.USD
		}
	}
	if price == 0 {
		return 0, 0, fmt.Errorf("%w: no usable pair price for %s", ErrUpstreamUnavailable, mint)
	}
	return price, liquidity, nil
}

// CoinGeckoSource serves the chain-native asset only, as a generic exchange
// reference at the end of the chain.
type CoinGeckoSource struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoSource creates a CoinGecko simple-price source.
func NewCoinGeckoSource(baseURL string, client *http.Client) *CoinGeckoSource {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3/simple/price"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CoinGeckoSource{baseURL: baseURL, client: client}
}

func (s *CoinGeckoSource) Name() string { return "coingecko" }

func (s *CoinGeckoSource) TryFetch(ctx context.Context, mint string) (float64, error) {
	if mint != domain.WrappedSOLMint {
		return 0, fmt.Errorf("%w: coingecko source serves SOL only", ErrUpstreamUnavailable)
	}

	body, err := getJSON(ctx, s.client, s.baseURL+"?ids=solana&vs_currencies=usd", nil)
	if err != nil {
		return 0, err
	}

	var result map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	entry, ok := result["solana"]
	if !ok || entry.USD <= 0 {
		return 0, fmt.Errorf("%w: no solana price in response", ErrUpstreamUnavailable)
	}
	return entry.USD, nil
}

// getJSON fetches a URL and returns the response body, capping its size.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUpstreamUnavailable, resp.StatusCode, url)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
