package core

import (
	"errors"
	"strings"
)

const (
	SourceTransaction Source = "transaction"
	SourceExpense     Source = "expense"
)

// NoWeather is the weather label stored on records that were not created
// by a payment commit (manual expenses).
const NoWeather = "-"

type (
	// Source names one of the two record sequences of the ledger.
	Source string

	// MenuItem maps a dish name to its unit price. Items are append-only:
	// the catalog has no update or delete path.
	MenuItem struct {
		Name  string
		Price Money
	}

	// Record is a single ledger entry, either a sale or an expense.
	Record struct {
		Description string
		Amount      Money
		Weather     string
		Timestamp   Timestamp
	}

	// Ledger is the whole in-memory document: menu catalog plus the two
	// record sequences. Record identity is positional within a sequence.
	Ledger struct {
		Menu         []MenuItem
		Transactions []Record
		Expenses     []Record
	}
)

var (
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyDescription  = errors.New("empty description")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrDuplicateMenuItem = errors.New("menu item already exists")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrIndexOutOfRange   = errors.New("record index out of range")
	ErrUnknownSource     = errors.New("unknown record source")
)

// Valid reports whether s names an existing record sequence.
func (s Source) Valid() bool {
	return s == SourceTransaction || s == SourceExpense
}

func (m MenuItem) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	return m.Price.Validate()
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	return r.Amount.Validate()
}

// LookupPrice returns the unit price of the first catalog item whose name
// matches exactly. Names are case-sensitive.
func (l *Ledger) LookupPrice(name string) (Money, error) {
	for _, m := range l.Menu {
		if m.Name == name {
			return m.Price, nil
		}
	}
	return Money{}, ErrMenuItemNotFound
}

// HasMenuItem reports whether the catalog already contains name.
func (l *Ledger) HasMenuItem(name string) bool {
	_, err := l.LookupPrice(name)
	return err == nil
}

func (l *Ledger) sequence(src Source) (*[]Record, error) {
	switch src {
	case SourceTransaction:
		return &l.Transactions, nil
	case SourceExpense:
		return &l.Expenses, nil
	default:
		return nil, ErrUnknownSource
	}
}

// Append adds a record to the end of the named sequence.
func (l *Ledger) Append(src Source, r Record) error {
	seq, err := l.sequence(src)
	if err != nil {
		return err
	}
	*seq = append(*seq, r)
	return nil
}

// Record returns a copy of the record at index in the named sequence.
func (l *Ledger) Record(src Source, index int) (Record, error) {
	seq, err := l.sequence(src)
	if err != nil {
		return Record{}, err
	}
	if index < 0 || index >= len(*seq) {
		return Record{}, ErrIndexOutOfRange
	}
	return (*seq)[index], nil
}

// Edit overwrites description and amount of the record at index. Weather
// label and timestamp are never edited.
func (l *Ledger) Edit(src Source, index int, desc string, amount Money) error {
	seq, err := l.sequence(src)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*seq) {
		return ErrIndexOutOfRange
	}
	(*seq)[index].Description = desc
	(*seq)[index].Amount = amount
	return nil
}

// Insert places a record at index, shifting later records up. Index may
// equal the sequence length (append position).
func (l *Ledger) Insert(src Source, index int, r Record) error {
	seq, err := l.sequence(src)
	if err != nil {
		return err
	}
	if index < 0 || index > len(*seq) {
		return ErrIndexOutOfRange
	}
	*seq = append(*seq, Record{})
	copy((*seq)[index+1:], (*seq)[index:])
	(*seq)[index] = r
	return nil
}

// Delete removes the record at index. Later records in the same sequence
// shift down, so any previously resolved index becomes stale.
func (l *Ledger) Delete(src Source, index int) error {
	seq, err := l.sequence(src)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*seq) {
		return ErrIndexOutOfRange
	}
	*seq = append((*seq)[:index], (*seq)[index+1:]...)
	return nil
}
