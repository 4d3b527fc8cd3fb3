package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDexScreenerSource_BestPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pairs":[
			{"priceUsd":"1.10","liquidity":{"usd":5000}},
			{"priceUsd":"1.25","liquidity":{"usd":90000}},
			{"priceUsd":"0","liquidity":{"usd":999999}}
		]}`))
	}))
	defer server.Close()

	src := NewDexScreenerSource(server.URL, nil)
	ctx := context.Background()

	price, err := src.TryFetch(ctx, "MintA")
	if err != nil {
		t.Fatalf("TryFetch: %v", err)
	}
	if price != 1.25 {
		t.Errorf("expected deepest pair price 1.25, got %v", price)
	}

	liq, err := src.PairLiquidityUSD(ctx, "MintA")
	if err != nil {
		t.Fatalf("PairLiquidityUSD: %v", err)
	}
	if liq != 90000 {
		t.Errorf("expected liquidity 90000, got %v", liq)
	}
}

func TestDexScreenerSource_NoPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[]}`))
	}))
	defer server.Close()

	src := NewDexScreenerSource(server.URL, nil)
	if _, err := src.TryFetch(context.Background(), "MintA"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestJupiterSource_ParsesPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"MintA":{"price":"3.50"}}}`))
	}))
	defer server.Close()

	src := NewJupiterSource(server.URL, nil)
	price, err := src.TryFetch(context.Background(), "MintA")
	if err != nil {
		t.Fatalf("TryFetch: %v", err)
	}
	if price != 3.5 {
		t.Errorf("expected 3.5, got %v", price)
	}
}

func TestJupiterSource_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	src := NewJupiterSource(server.URL, nil)
	if _, err := src.TryFetch(context.Background(), "MintA"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
