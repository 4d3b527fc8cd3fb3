// Package classify turns parsed transactions into typed wallet activity
// events. Classification is deliberately conservative: ambiguous balance
// movements are skipped rather than guessed.
package classify

import (
	"errors"
	"fmt"
	"log"

	"solana-wallet-sentinel/internal/domain"
)

// ErrMalformedTransaction marks a parsed record missing fields the
// classifier requires. The caller logs it and skips the signature.
var ErrMalformedTransaction = errors.New("malformed transaction")

// Classifier derives Transfer and Swap events for one watched wallet.
type Classifier struct {
	logger *log.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets a custom logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the events a transaction produced for wallet.
//
// Transfer-like token instructions addressed to the wallet each emit a
// Transfer; a plain transfer without mint and amount data is not
// classifiable and is skipped, since the parsed encoding only guarantees
// those fields for transferChecked. Independently, the wallet's pre/post
// token balances are diffed
// per mint; exactly two changed mints with opposite signs emit one Swap
// with the decreasing mint as sold. Any other change pattern emits no
// Swap. A transaction without instructions or snapshots yields an empty
// list, not an error.
func (c *Classifier) Classify(tx *domain.ParsedTransaction, wallet string) ([]domain.Event, error) {
	if tx == nil || tx.Signature == "" || wallet == "" {
		return nil, fmt.Errorf("%w: missing transaction or wallet", ErrMalformedTransaction)
	}
	if tx.Failed {
		return nil, nil
	}

	var events []domain.Event

	for _, inst := range tx.Instructions {
		if !isTransferLike(inst) {
			continue
		}
		if inst.Source != wallet && inst.Destination != wallet {
			continue
		}
		if inst.Mint == "" || inst.UIAmount <= 0 {
			// A plain transfer (and a system SOL transfer) carries no mint or
			// token amount in the parsed encoding. Only transferChecked is
			// required to have them.
			if inst.Type == domain.InstructionTransferChecked {
				return nil, fmt.Errorf("%w: transferChecked instruction in %s missing mint or amount",
					ErrMalformedTransaction, tx.Signature)
			}
			continue
		}
		events = append(events, domain.NewTransferEvent(domain.Transfer{
			Wallet:     wallet,
			Mint:       inst.Mint,
			UIAmount:   inst.UIAmount,
			IsIncoming: inst.Destination == wallet,
		}))
	}

	if swap := detectSwap(tx, wallet); swap != nil {
		events = append(events, domain.NewSwapEvent(*swap))
	}

	return events, nil
}

func isTransferLike(inst domain.ParsedInstruction) bool {
	return inst.Type == domain.InstructionTransfer || inst.Type == domain.InstructionTransferChecked
}

// detectSwap diffs the wallet's per-mint balances between the pre and post
// snapshots. Exactly two changed mints with opposite signs form a swap;
// everything else is not one.
func detectSwap(tx *domain.ParsedTransaction, wallet string) *domain.Swap {
	deltas := balanceDeltas(tx, wallet)
	if len(deltas) != 2 {
		return nil
	}

	swap := &domain.Swap{Wallet: wallet}
	for mint, delta := range deltas {
		if delta < 0 {
			swap.SoldMint = mint
			swap.SoldAmount = -delta
		} else {
			swap.BoughtMint = mint
			swap.BoughtAmount = delta
		}
	}
	if swap.SoldMint == "" || swap.BoughtMint == "" {
		// Same-sign pair is not a swap.
		return nil
	}
	return swap
}

// balanceDeltas returns post-minus-pre balance per mint for accounts owned
// by wallet. Mints whose balance did not move are absent.
func balanceDeltas(tx *domain.ParsedTransaction, wallet string) map[string]float64 {
	pre := make(map[string]float64)
	for _, b := range tx.PreTokenBalances {
		if b.Owner == wallet {
			pre[b.Mint] += b.UIAmount
		}
	}
	post := make(map[string]float64)
	for _, b := range tx.PostTokenBalances {
		if b.Owner == wallet {
			post[b.Mint] += b.UIAmount
		}
	}

	deltas := make(map[string]float64)
	for mint, amount := range post {
		if d := amount - pre[mint]; d != 0 {
			deltas[mint] = d
		}
	}
	for mint, amount := range pre {
		if _, seen := post[mint]; !seen && amount != 0 {
			deltas[mint] = -amount
		}
	}
	return deltas
}
