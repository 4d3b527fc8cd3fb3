package domain

// EventKind discriminates the Event union.
type EventKind string

const (
	EventKindTransfer EventKind = "TRANSFER"
	EventKindSwap     EventKind = "SWAP"
)

// Event is one typed activity item derived from a single transaction.
// Exactly one of Transfer or Swap is non-nil, selected by Kind.
type Event struct {
	Kind     EventKind
	Transfer *Transfer
	Swap     *Swap
}

// Transfer is a single token movement touching a watched wallet.
type Transfer struct {
	Wallet     string  // watched wallet address
	Mint       string  // token mint address
	UIAmount   float64 // amount in UI units (decimals applied)
	IsIncoming bool    // true when the wallet is the destination
}

// Swap is a two-legged balance change: exactly one mint decreased and
// exactly one increased for the same wallet within one transaction.
type Swap struct {
	Wallet       string
	SoldMint     string
	SoldAmount   float64 // positive magnitude
	BoughtMint   string
	BoughtAmount float64 // positive magnitude
}

// NewTransferEvent wraps a Transfer in the Event union.
func NewTransferEvent(t Transfer) Event {
	return Event{Kind: EventKindTransfer, Transfer: &t}
}

// NewSwapEvent wraps a Swap in the Event union.
func NewSwapEvent(s Swap) Event {
	return Event{Kind: EventKindSwap, Swap: &s}
}
