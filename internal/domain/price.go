package domain

import "time"

// PricePoint is one observed USD price for a mint.
type PricePoint struct {
	Mint       string
	PriceUSD   float64
	ObservedAt time.Time
	Source     string // source that produced the observation
	Stale      bool   // true when served past TTL because every source failed
}

// Age returns how long ago the price was observed.
func (p PricePoint) Age(now time.Time) time.Duration {
	return now.Sub(p.ObservedAt)
}
