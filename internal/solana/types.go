package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// MintAccount is the decoded state of an SPL token mint account.
type MintAccount struct {
	Mint     string
	Decimals int
	Supply   uint64
}

