package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jonssons-io/project-yoshi-sub001/internal/amqp"
	"github.com/jonssons-io/project-yoshi-sub001/internal/cache"
	"github.com/jonssons-io/project-yoshi-sub001/internal/log"
	"github.com/jonssons-io/project-yoshi-sub001/internal/sheets"
)

// seenSet is the part of the LRU cache the worker needs to drop redeliveries.
type seenSet interface {
	Add(key string, data struct{}) bool
	Delete(key string)
}

var _ seenSet = (*cache.LRUCache[struct{}])(nil)

// ExportWorker appends every ledger event it consumes to the export sheet.
// AMQP delivers at least once, so event ids already exported are skipped.
type ExportWorker struct {
	writer sheets.LedgerEventWriter
	seen   seenSet
	logger *log.Logger

	exported atomic.Int64
	skipped  atomic.Int64
}

func NewExportWorker(writer sheets.LedgerEventWriter, seen *cache.LRUCache[struct{}]) *ExportWorker {
	return &ExportWorker{
		writer: writer,
		seen:   seen,
		logger: log.Default().WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent exports a single event. A returned error makes the
// consumer requeue the delivery, so the event id is forgotten again when
// the write fails.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	fields := log.NewFields().
		WithEvent(ev.EventID, string(ev.Type)).
		WithLedgerEntry(ev.HouseholdID, ev.BudgetID, ev.AccountID, ev.AmountCents)

	if !w.seen.Add(ev.EventID, struct{}{}) {
		w.skipped.Add(1)
		w.logger.DebugContext(ctx, "Skipping already exported ledger event", fields.ToSlice()...)
		return nil
	}

	ref, err := w.writer.AppendLedgerEvent(ctx, ev)
	if err != nil {
		w.seen.Delete(ev.EventID)
		w.logger.ErrorContext(ctx, "Failed to export ledger event",
			fields.WithError(err).WithErrorType(log.ErrorType(err)).ToSlice()...)
		return fmt.Errorf("export ledger event %s: %w", ev.EventID, err)
	}

	w.exported.Add(1)
	fields[log.FieldSheetsRef] = ref
	w.logger.InfoContext(ctx, "Exported ledger event", fields.WithOperation(log.OpExport).ToSlice()...)
	return nil
}

// Stats reports how many events were exported and how many were skipped
// as duplicates since the worker started.
func (w *ExportWorker) Stats() (exported, skipped int64) {
	return w.exported.Load(), w.skipped.Load()
}
