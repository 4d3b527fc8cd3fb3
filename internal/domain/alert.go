package domain

// AlertKind classifies an emitted alert.
type AlertKind string

const (
	AlertKindLargeSwap      AlertKind = "LARGE_SWAP"
	AlertKindCoordinatedBuy AlertKind = "COORDINATED_BUY"
)

// AlertRecord captures one emitted alert for journaling.
// Corresponds to the alerts table in PostgreSQL when journaling is enabled.
type AlertRecord struct {
	AlertID   string    // deterministic hash, primary key
	Kind      AlertKind
	Mint      string    // the mint the alert is about (bought mint for swaps)
	Wallet    string    // originating wallet, empty for coordinated-buy alerts
	Signature string    // triggering transaction signature, empty for accumulations
	ValueUSD  float64   // USD value, 0 when unknown
	Message   string    // formatted message as delivered to sinks
	CreatedAt int64     // Unix timestamp in milliseconds
}
