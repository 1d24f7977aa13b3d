package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ArchivedEvent is one ledger mutation as recorded in the audit archive.
// RecordedAt carries the ledger's own "dd/mm/yyyy HH:MM:SS" timestamp;
// the archive adds its own received_at wall clock.
type ArchivedEvent struct {
	Kind        string
	Source      string
	Description string
	Amount      int64
	Weather     string
	RecordedAt  string
}

// Archive is the append-only SQLite mirror of ledger events, written by
// the worker that drains the AMQP queue. It never feeds back into the
// JSON document of record.
type Archive struct {
	db *sql.DB
}

func OpenArchive(dbPath string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Append stores one event and returns its archive row id.
func (a *Archive) Append(ctx context.Context, ev ArchivedEvent) (int64, error) {
	res, err := a.db.ExecContext(ctx,
		`INSERT INTO ledger_events (kind, source, description, amount, weather, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Kind, ev.Source, ev.Description, ev.Amount, ev.Weather, ev.RecordedAt)
	if err != nil {
		return 0, fmt.Errorf("insert ledger event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Ledger event archived",
		"id", id,
		"kind", ev.Kind,
		"source", ev.Source,
		"amount", ev.Amount)

	return id, nil
}

// CountEvents returns the total number of archived events.
func (a *Archive) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger events: %w", err)
	}
	return n, nil
}
