package domain

// TokenIdentity describes a mint as resolved by the registry chain.
// Symbol, name and decimals are immutable once resolved; the verified and
// scam flags may be refreshed on a longer cycle.
type TokenIdentity struct {
	Mint     string
	Symbol   string
	Name     string
	Decimals int
	Verified bool
	IsScam   bool
}

// Well-known mint addresses.
const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"

	// NativeSOLPseudoMint is the system program ID, used by some upstreams
	// to denote unwrapped SOL. Price lookups fold it into WrappedSOLMint.
	NativeSOLPseudoMint = "11111111111111111111111111111111"
)

// Placeholder values used when every registry source is exhausted.
const (
	PlaceholderSymbol   = "UNKNOWN"
	PlaceholderDecimals = 9
)

// PlaceholderIdentity returns the identity used when no source could
// resolve the mint. The pipeline never fails on unresolved metadata.
func PlaceholderIdentity(mint string) TokenIdentity {
	return TokenIdentity{
		Mint:     mint,
		Symbol:   PlaceholderSymbol,
		Decimals: PlaceholderDecimals,
	}
}
