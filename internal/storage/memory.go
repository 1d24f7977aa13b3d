package storage

import (
	"sync"

	"kasir/internal/core"
)

// MemoryStore keeps the ledger document in process memory only. It backs
// tests and throwaway runs where no data file should be touched.
type MemoryStore struct {
	mu     sync.Mutex
	ledger core.Ledger
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := cloneLedger(&s.ledger)
	return l, nil
}

func (s *MemoryStore) Save(l *core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = *cloneLedger(l)
	return nil
}

func cloneLedger(l *core.Ledger) *core.Ledger {
	out := &core.Ledger{
		Menu:         make([]core.MenuItem, len(l.Menu)),
		Transactions: make([]core.Record, len(l.Transactions)),
		Expenses:     make([]core.Record, len(l.Expenses)),
	}
	copy(out.Menu, l.Menu)
	copy(out.Transactions, l.Transactions)
	copy(out.Expenses, l.Expenses)
	return out
}
