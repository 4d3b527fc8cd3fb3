package alert

import (
	"context"
	"errors"
	"log"

	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/observability"
	"solana-wallet-sentinel/internal/storage"
)

// Dispatcher fans an alert out to every configured sink and journals it.
// Sink failures and journal failures are independent: neither stops the
// other, and neither propagates to the pipeline.
type Dispatcher struct {
	sinks   []Sink
	journal storage.AlertStore // nil disables journaling
	logger  *log.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithJournal enables alert journaling through the store.
func WithJournal(store storage.AlertStore) DispatcherOption {
	return func(d *Dispatcher) {
		d.journal = store
	}
}

// WithDispatcherLogger sets a custom logger.
func WithDispatcherLogger(logger *log.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a Dispatcher over the given sinks.
func NewDispatcher(sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{sinks: sinks, logger: log.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch journals the alert and sends it to every sink, best-effort.
func (d *Dispatcher) Dispatch(ctx context.Context, rec domain.AlertRecord) {
	if d.journal != nil {
		switch err := d.journal.Insert(ctx, &rec); {
		case err == nil:
			observability.DefaultMetrics.JournalWrites.Inc()
		case errors.Is(err, storage.ErrDuplicateKey):
			// Already journaled, e.g. an operator replaying history.
		default:
			observability.DefaultMetrics.JournalErrors.Inc()
			d.logger.Printf("journal alert %s: %v", rec.AlertID, err)
		}
	}

	for _, sink := range d.sinks {
		if err := sink.Send(ctx, rec.Message); err != nil {
			observability.RecordAlertSendFailure(sink.Name())
			d.logger.Printf("send alert %s via %s: %v", rec.AlertID, sink.Name(), err)
		}
	}
}
