// Package worker drains the ledger-events queue into the SQLite audit
// archive.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kasir/internal/amqp"
	"kasir/internal/storage"
)

// EventArchive is the sink for consumed ledger events.
type EventArchive interface {
	Append(ctx context.Context, ev storage.ArchivedEvent) (int64, error)
}

// ArchiveWorker turns queue deliveries into archive rows.
type ArchiveWorker struct {
	archive EventArchive
}

func NewArchiveWorker(archive EventArchive) *ArchiveWorker {
	return &ArchiveWorker{archive: archive}
}

// HandleEvent archives one consumed event. Returning an error makes the
// client nack and requeue the delivery.
func (w *ArchiveWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	id, err := w.archive.Append(ctx, storage.ArchivedEvent{
		Kind:        ev.Kind,
		Source:      ev.Source,
		Description: ev.Description,
		Amount:      ev.Amount,
		Weather:     ev.Weather,
		RecordedAt:  ev.RecordedAt,
	})
	if err != nil {
		return fmt.Errorf("archive ledger event: %w", err)
	}

	slog.DebugContext(ctx, "Ledger event handled", "archive_id", id, "kind", ev.Kind)
	return nil
}
