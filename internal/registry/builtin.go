package registry

import "solana-wallet-sentinel/internal/domain"

// wellKnown is the built-in table of chain-native and stable assets.
// These resolve immediately with verified identities and no cache entry.
var wellKnown = map[string]domain.TokenIdentity{
	domain.WrappedSOLMint: {
		Mint:     domain.WrappedSOLMint,
		Symbol:   "SOL",
		Name:     "Wrapped SOL",
		Decimals: 9,
		Verified: true,
	},
	domain.USDCMint: {
		Mint:     domain.USDCMint,
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
		Verified: true,
	},
	domain.USDTMint: {
		Mint:     domain.USDTMint,
		Symbol:   "USDT",
		Name:     "Tether USD",
		Decimals: 6,
		Verified: true,
	},
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": {
		Mint:     "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		Symbol:   "BONK",
		Name:     "Bonk",
		Decimals: 5,
		Verified: true,
	},
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN": {
		Mint:     "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
		Symbol:   "JUP",
		Name:     "Jupiter",
		Decimals: 6,
		Verified: true,
	},
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R": {
		Mint:     "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
		Symbol:   "RAY",
		Name:     "Raydium",
		Decimals: 6,
		Verified: true,
	},
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So": {
		Mint:     "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",
		Symbol:   "mSOL",
		Name:     "Marinade staked SOL",
		Decimals: 9,
		Verified: true,
	},
}
