// Package worker mirrors created transactions into the spreadsheet ledger.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"splitbill/internal/amqp"
	"splitbill/internal/core"
	"splitbill/internal/log"
	"splitbill/internal/sheets"
)

// Consumer delivers events to a handler until ctx is done.
type Consumer interface {
	ConsumeTransactionCreated(ctx context.Context, handler amqp.Handler) error
}

// LedgerWorker appends one ledger row per created transaction.
type LedgerWorker struct {
	writer sheets.LedgerWriter
	loc    *time.Location
	logger *log.Logger
}

func NewLedgerWorker(writer sheets.LedgerWriter, loc *time.Location, logger *log.Logger) *LedgerWorker {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerWorker{
		writer: writer,
		loc:    loc,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes until ctx is cancelled.
func (w *LedgerWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Ledger worker started")
	err := consumer.ConsumeTransactionCreated(ctx, w.HandleEvent)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Ledger worker stopped")
		return nil
	}
	return err
}

// HandleEvent writes ev to the ledger. Errors make the broker redeliver.
func (w *LedgerWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionCreatedEvent) error {
	row, err := w.row(ev)
	if err != nil {
		// A bad date will not improve on redelivery; write the row undated.
		w.logger.WarnContext(ctx, "Event has an unreadable date",
			"event_id", ev.EventID,
			log.FieldError, err)
	}

	ref, err := w.writer.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirrored transaction",
		"event_id", ev.EventID,
		log.FieldTitle, ev.Title,
		log.FieldSplitID, ev.SplitID,
		"row_ref", ref)
	return nil
}

func (w *LedgerWorker) row(ev *amqp.TransactionCreatedEvent) (sheets.LedgerRow, error) {
	row := sheets.LedgerRow{
		EventID:     ev.EventID,
		Title:       ev.Title,
		Type:        ev.TransactionType,
		SplitID:     ev.SplitID,
		AmountCents: core.ToCents(ev.BillAmount),
		PaidBy:      strings.Join(ev.PaidBy, ", "),
		RecordedAt:  ev.Timestamp,
	}
	if !row.Type.IsValid() {
		row.Type = core.Other
	}
	date, err := core.ParseDate(ev.Date, w.loc)
	if err != nil {
		return row, err
	}
	row.Date = date
	return row, nil
}
