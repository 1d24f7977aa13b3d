// Package storage persists the ledger. The document of record is a single
// pretty-printed JSON file whose field names must round-trip exactly for
// compatibility with pre-existing data files; the SQLite archive is a
// separate append-only audit mirror fed by the worker.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"kasir/internal/core"
)

// LedgerStore owns loading and saving the whole ledger document. Every
// mutation rewrites the full document; there are no partial writes.
type LedgerStore interface {
	Load() (*core.Ledger, error)
	Save(l *core.Ledger) error
}

// Legacy on-disk shape. The keys come from the original data file and are
// frozen: menu[{nama,harga}], transaksi/pengeluaran[{ket,nominal,cuaca,waktu}].
type (
	menuItemDoc struct {
		Nama  string `json:"nama"`
		Harga int64  `json:"harga"`
	}

	recordDoc struct {
		Ket     string `json:"ket"`
		Nominal int64  `json:"nominal"`
		Cuaca   string `json:"cuaca"`
		Waktu   string `json:"waktu"`
	}

	ledgerDoc struct {
		Menu        []menuItemDoc `json:"menu"`
		Transaksi   []recordDoc   `json:"transaksi"`
		Pengeluaran []recordDoc   `json:"pengeluaran"`
	}
)

// FileStore reads and writes the ledger document at a fixed path.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document. A missing file yields an empty ledger, matching
// first-run behavior; an unreadable or malformed file is an error.
func (s *FileStore) Load() (*core.Ledger, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &core.Ledger{}, nil
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	var doc ledgerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode ledger file %s: %w", s.path, err)
	}
	return fromDoc(doc), nil
}

// Save rewrites the whole document. The file handle is flushed and closed
// on all paths so a failed save never reports false success.
func (s *FileStore) Save(l *core.Ledger) error {
	data, err := json.MarshalIndent(toDoc(l), "", "    ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write ledger file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("flush ledger file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger file: %w", err)
	}
	return nil
}

func toDoc(l *core.Ledger) ledgerDoc {
	// Empty sequences must serialize as [] rather than null to match the
	// legacy document shape.
	doc := ledgerDoc{
		Menu:        make([]menuItemDoc, 0, len(l.Menu)),
		Transaksi:   make([]recordDoc, 0, len(l.Transactions)),
		Pengeluaran: make([]recordDoc, 0, len(l.Expenses)),
	}
	for _, m := range l.Menu {
		doc.Menu = append(doc.Menu, menuItemDoc{Nama: m.Name, Harga: m.Price.Rupiah})
	}
	for _, r := range l.Transactions {
		doc.Transaksi = append(doc.Transaksi, toRecordDoc(r))
	}
	for _, r := range l.Expenses {
		doc.Pengeluaran = append(doc.Pengeluaran, toRecordDoc(r))
	}
	return doc
}

func fromDoc(doc ledgerDoc) *core.Ledger {
	l := &core.Ledger{}
	for _, m := range doc.Menu {
		l.Menu = append(l.Menu, core.MenuItem{Name: m.Nama, Price: core.Money{Rupiah: m.Harga}})
	}
	for _, r := range doc.Transaksi {
		l.Transactions = append(l.Transactions, fromRecordDoc(r))
	}
	for _, r := range doc.Pengeluaran {
		l.Expenses = append(l.Expenses, fromRecordDoc(r))
	}
	return l
}

func toRecordDoc(r core.Record) recordDoc {
	return recordDoc{
		Ket:     r.Description,
		Nominal: r.Amount.Rupiah,
		Cuaca:   r.Weather,
		Waktu:   string(r.Timestamp),
	}
}

func fromRecordDoc(r recordDoc) core.Record {
	return core.Record{
		Description: r.Ket,
		Amount:      core.Money{Rupiah: r.Nominal},
		Weather:     r.Cuaca,
		Timestamp:   core.Timestamp(r.Waktu),
	}
}
