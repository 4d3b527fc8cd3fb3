package domain

// ParsedTransaction is the ledger client's parsed view of one transaction,
// reduced to the fields the classifier consumes.
type ParsedTransaction struct {
	Signature         string
	Slot              int64
	BlockTime         int64 // Unix seconds, 0 when unknown
	Failed            bool  // true when the transaction errored on chain
	Instructions      []ParsedInstruction
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// ParsedInstruction is one decoded instruction of a transaction.
type ParsedInstruction struct {
	Program     string // e.g. "spl-token", "system"
	Type        string // e.g. "transfer", "transferChecked"
	Source      string // source owner address
	Destination string // destination owner address
	Mint        string
	UIAmount    float64
}

// TokenBalance is one pre/post token balance snapshot entry.
type TokenBalance struct {
	Mint     string
	Owner    string
	UIAmount float64
}

// Instruction type values treated as transfer-like by the classifier.
const (
	InstructionTransfer        = "transfer"
	InstructionTransferChecked = "transferChecked"
)
