package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/solana"
)

// TokenListSource resolves identity from the Jupiter strict token list.
// A hit means a curated listing, so the identity comes back verified.
type TokenListSource struct {
	baseURL string
	client  *http.Client
}

// NewTokenListSource creates a token-list source. An empty baseURL uses the
// public endpoint.
func NewTokenListSource(baseURL string, client *http.Client) *TokenListSource {
	if baseURL == "" {
		baseURL = "https://tokens.jup.ag/token"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenListSource{baseURL: baseURL, client: client}
}

func (s *TokenListSource) Name() string { return "tokenlist" }

func (s *TokenListSource) TryResolve(ctx context.Context, mint string) (*domain.TokenIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", s.baseURL, mint), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvedMetadata, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnresolvedMetadata, resp.StatusCode)
	}

	var entry struct {
		Address  string `json:"address"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvedMetadata, err)
	}
	if entry.Symbol == "" {
		return nil, fmt.Errorf("%w: empty listing for %s", ErrUnresolvedMetadata, mint)
	}

	return &domain.TokenIdentity{
		Mint:     mint,
		Symbol:   entry.Symbol,
		Name:     entry.Name,
		Decimals: entry.Decimals,
		Verified: true,
	}, nil
}

// AccountFetcher reads raw accounts from the ledger. Satisfied by
// solana.HTTPClient.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
}

// OnChainSource resolves identity from the mint account and its Metaplex
// metadata PDA. On-chain metadata is self-reported, so results are never
// verified.
type OnChainSource struct {
	rpc AccountFetcher
}

// NewOnChainSource creates the last-resort on-chain source.
func NewOnChainSource(rpc AccountFetcher) *OnChainSource {
	return &OnChainSource{rpc: rpc}
}

func (s *OnChainSource) Name() string { return "onchain" }

func (s *OnChainSource) TryResolve(ctx context.Context, mint string) (*domain.TokenIdentity, error) {
	info, err := s.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvedMetadata, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: mint account %s not found", ErrUnresolvedMetadata, mint)
	}

	mintAcct, err := solana.DecodeMintAccount(mint, info.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvedMetadata, err)
	}

	id := &domain.TokenIdentity{
		Mint:     mint,
		Symbol:   domain.PlaceholderSymbol,
		Decimals: mintAcct.Decimals,
	}

	// Name and symbol are best-effort; decimals alone are still useful.
	if metaAddr, err := solana.MetadataAddress(mint); err == nil {
		if metaInfo, err := s.rpc.GetAccountInfo(ctx, metaAddr); err == nil && metaInfo != nil {
			if meta, err := solana.DecodeTokenMetadata(metaInfo.Data); err == nil {
				if meta.Symbol != "" {
					id.Symbol = meta.Symbol
				}
				id.Name = meta.Name
			}
		}
	}

	return id, nil
}
