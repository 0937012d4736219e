// Package worker consumes the events published when recurring rules
// generate transactions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	defaultDedupSize = 10_000
	defaultDedupTTL  = 24 * time.Hour
)

// Ledger is what the worker needs from the ledger service.
type Ledger interface {
	Transactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error)
	Invalidate(userID string)
}

// Stats counts how deliveries were handled.
type Stats struct {
	Processed  int64
	Duplicates int64
	Invalid    int64
	Missing    int64
}

// EventWorker confirms each generated transaction against the store and
// drops the owner's cached views. Redelivered events are skipped.
type EventWorker struct {
	ledger Ledger
	seen   *cache.LRUCache[struct{}]
	logger *log.Logger

	processed  atomic.Int64
	duplicates atomic.Int64
	invalid    atomic.Int64
	missing    atomic.Int64
}

func NewEventWorker(ledger Ledger) *EventWorker {
	return &EventWorker{
		ledger: ledger,
		seen:   cache.NewLRUCache[struct{}](defaultDedupSize, defaultDedupTTL),
		logger: log.Default().WithComponent(log.ComponentWorker),
	}
}

// DedupCache exposes the seen-event cache for periodic cleanup.
func (w *EventWorker) DedupCache() cache.Cleaner {
	return w.seen
}

var errInvalidMessage = errors.New("invalid transaction event")

func validate(msg *amqp.TransactionGeneratedMessage) error {
	switch {
	case msg == nil:
		return fmt.Errorf("%w: empty message", errInvalidMessage)
	case msg.EventID == "":
		return fmt.Errorf("%w: missing event id", errInvalidMessage)
	case msg.UserID == "":
		return fmt.Errorf("%w: missing user id", errInvalidMessage)
	case msg.TransactionID == "":
		return fmt.Errorf("%w: missing transaction id", errInvalidMessage)
	}
	return nil
}

// HandleTransactionGenerated processes one event. Malformed, duplicate and
// unknown-transaction events are acknowledged; only store failures return an
// error so the delivery is requeued.
func (w *EventWorker) HandleTransactionGenerated(ctx context.Context, msg *amqp.TransactionGeneratedMessage) error {
	if err := validate(msg); err != nil {
		w.invalid.Add(1)
		w.logger.WarnContext(ctx, "Dropping transaction event", log.FieldError, err)
		return nil
	}

	if _, dup := w.seen.Get(msg.EventID); dup {
		w.duplicates.Add(1)
		w.logger.DebugContext(ctx, "Skipping duplicate transaction event", "event_id", msg.EventID)
		return nil
	}

	found, err := w.exists(ctx, msg)
	if err != nil {
		return fmt.Errorf("look up transaction %s: %w", msg.TransactionID, err)
	}

	w.seen.Set(msg.EventID, struct{}{})
	w.ledger.Invalidate(msg.UserID)

	fields := log.NewFields().
		WithUser(msg.UserID).
		WithTransaction(msg.TransactionID, string(msg.Type), msg.Amount.String(), "")
	args := append(fields.ToSlice(), "event_id", msg.EventID, log.FieldRuleID, msg.RuleID)

	if !found {
		w.missing.Add(1)
		w.logger.WarnContext(ctx, "Generated transaction not found in store", args...)
		return nil
	}

	w.processed.Add(1)
	w.logger.InfoContext(ctx, "Generated transaction confirmed", args...)
	return nil
}

// exists looks for the transaction on its own date, which keeps the lookup
// to a single day of the user's ledger.
func (w *EventWorker) exists(ctx context.Context, msg *amqp.TransactionGeneratedMessage) (bool, error) {
	f := core.TransactionFilter{}
	if !msg.Date.IsZero() {
		f.From, f.To = msg.Date, msg.Date
	}
	txs, err := w.ledger.Transactions(ctx, msg.UserID, f)
	if err != nil {
		return false, err
	}
	for _, tx := range txs {
		if tx.ID == msg.TransactionID {
			return true, nil
		}
	}
	return false, nil
}

func (w *EventWorker) Stats() Stats {
	return Stats{
		Processed:  w.processed.Load(),
		Duplicates: w.duplicates.Load(),
		Invalid:    w.invalid.Load(),
		Missing:    w.missing.Load(),
	}
}
