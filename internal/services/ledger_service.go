// Package services orchestrates the ledger operations: catalog and cart
// management, payment commits, manual expenses, date queries and record
// edit/delete. Every mutation persists the whole document through the
// store before it is reported as a success.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kasir/internal/amqp"
	"kasir/internal/core"
	"kasir/internal/storage"
	"kasir/internal/weather"
)

// EventPublisher pushes ledger events to the archive queue. Publishing is
// best-effort; a failure is logged and never fails the user operation.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Receipt reports a successful payment commit back to the caller.
type Receipt struct {
	Description string
	Total       core.Money
	Weather     string
	Timestamp   core.Timestamp
}

// LedgerService owns the in-memory document and the active cart. The
// stall is single-user, but the HTTP layer serves requests concurrently,
// so all state is guarded by one mutex.
type LedgerService struct {
	mu      sync.Mutex
	store   storage.LedgerStore
	weather weather.Provider
	events  EventPublisher
	ledger  *core.Ledger
	cart    *core.Cart

	weatherTimeout time.Duration
	now            func() time.Time
}

// NewLedgerService loads the document from the store. A nil events
// publisher disables archiving.
func NewLedgerService(store storage.LedgerStore, provider weather.Provider, events EventPublisher) (*LedgerService, error) {
	ledger, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return &LedgerService{
		store:          store,
		weather:        provider,
		events:         events,
		ledger:         ledger,
		cart:           core.NewCart(),
		weatherTimeout: weather.DefaultTimeout,
		now:            time.Now,
	}, nil
}

// AddMenuItem appends a catalog item and persists. Names are unique; the
// catalog has no update or delete path, so a duplicate is rejected.
func (s *LedgerService) AddMenuItem(ctx context.Context, name, priceText string) (core.MenuItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.MenuItem{}, core.ErrEmptyName
	}
	price, err := core.ParseAmount(priceText)
	if err != nil {
		return core.MenuItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger.HasMenuItem(name) {
		return core.MenuItem{}, core.ErrDuplicateMenuItem
	}
	item := core.MenuItem{Name: name, Price: price}
	s.ledger.Menu = append(s.ledger.Menu, item)
	if err := s.store.Save(s.ledger); err != nil {
		s.ledger.Menu = s.ledger.Menu[:len(s.ledger.Menu)-1]
		return core.MenuItem{}, fmt.Errorf("persist menu item: %w", err)
	}

	slog.InfoContext(ctx, "Menu item added", "name", item.Name, "price", item.Price.Rupiah)
	return item, nil
}

// Menu returns the catalog in insertion order.
func (s *LedgerService) Menu() []core.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.MenuItem, len(s.ledger.Menu))
	copy(out, s.ledger.Menu)
	return out
}

// LookupPrice resolves a catalog price by exact name.
func (s *LedgerService) LookupPrice(name string) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.LookupPrice(name)
}

// AddToCart parses the quantity text, prices the item via the catalog and
// merges it into the cart. Nothing is persisted; the cart only reaches
// storage through a commit.
func (s *LedgerService) AddToCart(ctx context.Context, name, quantityText string) (core.CartLine, error) {
	quantity, err := core.ParseQuantity(quantityText)
	if err != nil {
		return core.CartLine{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	price, err := s.ledger.LookupPrice(name)
	if err != nil {
		return core.CartLine{}, err
	}
	line, err := s.cart.AddLine(name, quantity, price)
	if err != nil {
		return core.CartLine{}, err
	}

	slog.DebugContext(ctx, "Cart line updated", "name", line.Name, "quantity", line.Quantity, "subtotal", line.Subtotal.Rupiah)
	return line, nil
}

// CartLines returns the current cart contents.
func (s *LedgerService) CartLines() []core.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

// CartTotal returns the running total of the cart.
func (s *LedgerService) CartTotal() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

// ClearCart empties the cart without touching the ledger.
func (s *LedgerService) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
}

// CommitPayment turns the cart into a transaction record: total and
// description are computed, the weather label fetched best-effort, the
// record appended and persisted, and only then is the cart cleared.
func (s *LedgerService) CommitPayment(ctx context.Context) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.Len() == 0 {
		return Receipt{}, core.ErrEmptyCart
	}

	total := s.cart.Total()
	description := s.cart.Description()

	wctx, cancel := context.WithTimeout(ctx, s.weatherTimeout)
	label := s.weather.CurrentLabel(wctx)
	cancel()

	rec := core.Record{
		Description: description,
		Amount:      total,
		Weather:     label,
		Timestamp:   core.NewTimestamp(s.now()),
	}
	if err := s.ledger.Append(core.SourceTransaction, rec); err != nil {
		return Receipt{}, err
	}
	if err := s.store.Save(s.ledger); err != nil {
		// Keep memory consistent with the file on a failed write.
		_ = s.ledger.Delete(core.SourceTransaction, len(s.ledger.Transactions)-1)
		return Receipt{}, fmt.Errorf("persist sale: %w", err)
	}
	s.cart.Clear()

	s.publish(ctx, amqp.NewRecordEvent(amqp.EventSale, core.SourceTransaction, rec))
	slog.InfoContext(ctx, "Payment committed", "total", total.Rupiah, "weather", label)

	return Receipt{
		Description: description,
		Total:       total,
		Weather:     label,
		Timestamp:   rec.Timestamp,
	}, nil
}

// AddExpense records an operational expense on the selected date. The
// timestamp combines the date key with the current time-of-day, and the
// weather label is the "-" placeholder.
func (s *LedgerService) AddExpense(ctx context.Context, date core.DateKey, description, amountText string) (core.Record, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return core.Record{}, core.ErrEmptyDescription
	}
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return core.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := core.Record{
		Description: description,
		Amount:      amount,
		Weather:     core.NoWeather,
		Timestamp:   date.WithTime(s.now()),
	}
	if err := s.ledger.Append(core.SourceExpense, rec); err != nil {
		return core.Record{}, err
	}
	if err := s.store.Save(s.ledger); err != nil {
		_ = s.ledger.Delete(core.SourceExpense, len(s.ledger.Expenses)-1)
		return core.Record{}, fmt.Errorf("persist expense: %w", err)
	}

	s.publish(ctx, amqp.NewRecordEvent(amqp.EventExpense, core.SourceExpense, rec))
	slog.InfoContext(ctx, "Expense recorded", "description", description, "amount", amount.Rupiah, "date", string(date))
	return rec, nil
}

// QueryByDate selects every record whose timestamp falls on the given
// day, transactions first, and computes the day aggregates. Indices are
// resolved fresh on every call and must not be held across mutations.
func (s *LedgerService) QueryByDate(date core.DateKey) core.DaySummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := core.DaySummary{Date: date}
	for i, r := range s.ledger.Transactions {
		if r.Timestamp.MatchesDate(date) {
			summary.Rows = append(summary.Rows, core.DayRow{Source: core.SourceTransaction, Index: i, Record: r})
			summary.Income = summary.Income.Add(r.Amount)
		}
	}
	for i, r := range s.ledger.Expenses {
		if r.Timestamp.MatchesDate(date) {
			summary.Rows = append(summary.Rows, core.DayRow{Source: core.SourceExpense, Index: i, Record: r})
			summary.Expense = summary.Expense.Add(r.Amount)
		}
	}
	return summary
}

// EditRecord overwrites description and amount of a record in place.
// Amount text that does not parse becomes zero, the historical permissive
// policy for manual corrections.
func (s *LedgerService) EditRecord(ctx context.Context, src core.Source, index int, description, amountText string) (core.Record, error) {
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		amount = core.Money{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.ledger.Record(src, index)
	if err != nil {
		return core.Record{}, err
	}
	if err := s.ledger.Edit(src, index, description, amount); err != nil {
		return core.Record{}, err
	}
	if err := s.store.Save(s.ledger); err != nil {
		_ = s.ledger.Edit(src, index, prev.Description, prev.Amount)
		return core.Record{}, fmt.Errorf("persist edit: %w", err)
	}

	updated, _ := s.ledger.Record(src, index)
	s.publish(ctx, amqp.NewRecordEvent(amqp.EventEdit, src, updated))
	slog.InfoContext(ctx, "Record edited", "source", string(src), "index", index, "amount", updated.Amount.Rupiah)
	return updated, nil
}

// DeleteRecord removes a record by position. Indices of later records in
// the same sequence shift down, so callers must re-query afterwards.
func (s *LedgerService) DeleteRecord(ctx context.Context, src core.Source, index int) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.ledger.Record(src, index)
	if err != nil {
		return core.Record{}, err
	}
	if err := s.ledger.Delete(src, index); err != nil {
		return core.Record{}, err
	}
	if err := s.store.Save(s.ledger); err != nil {
		_ = s.ledger.Insert(src, index, removed)
		return core.Record{}, fmt.Errorf("persist delete: %w", err)
	}

	s.publish(ctx, amqp.NewRecordEvent(amqp.EventDelete, src, removed))
	slog.InfoContext(ctx, "Record deleted", "source", string(src), "index", index)
	return removed, nil
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event", "kind", ev.Kind, "error", err)
	}
}
