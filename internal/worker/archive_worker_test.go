package worker

import (
	"context"
	"errors"
	"testing"

	"kasir/internal/amqp"
	"kasir/internal/storage"
)

type fakeArchive struct {
	rows []storage.ArchivedEvent
	err  error
}

func (f *fakeArchive) Append(_ context.Context, ev storage.ArchivedEvent) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, ev)
	return int64(len(f.rows)), nil
}

func TestHandleEvent(t *testing.T) {
	archive := &fakeArchive{}
	w := NewArchiveWorker(archive)

	ev := &amqp.LedgerEvent{
		Kind:        amqp.EventSale,
		Source:      "transaction",
		Description: "Nasi Goreng (x2)",
		Amount:      30000,
		Weather:     "Cerah",
		RecordedAt:  "05/04/2024 12:01:02",
	}
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(archive.rows) != 1 {
		t.Fatalf("expected one archived row, got %d", len(archive.rows))
	}
	row := archive.rows[0]
	if row.Kind != amqp.EventSale || row.Amount != 30000 || row.RecordedAt != "05/04/2024 12:01:02" {
		t.Fatalf("row = %+v", row)
	}
}

func TestHandleEventArchiveFailure(t *testing.T) {
	w := NewArchiveWorker(&fakeArchive{err: errors.New("locked")})
	err := w.HandleEvent(context.Background(), &amqp.LedgerEvent{Kind: amqp.EventExpense})
	if err == nil {
		t.Fatalf("archive failure must surface so the delivery is requeued")
	}
}
