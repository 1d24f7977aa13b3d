package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"kasir/internal/amqp"
	"kasir/internal/core"
	"kasir/internal/storage"
	"kasir/internal/weather"
)

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	events []*amqp.LedgerEvent
	err    error
}

func (p *capturingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

// failingStore rejects saves after a configurable number of successes.
type failingStore struct {
	inner     storage.LedgerStore
	saveCount int
	failAfter int
}

func (f *failingStore) Load() (*core.Ledger, error) { return f.inner.Load() }

func (f *failingStore) Save(l *core.Ledger) error {
	f.saveCount++
	if f.saveCount > f.failAfter {
		return errors.New("disk full")
	}
	return f.inner.Save(l)
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 4, 5, 12, 1, 2, 0, time.Local)
	return func() time.Time { return at }
}

func newTestService(t *testing.T, label string) (*LedgerService, *capturingPublisher) {
	t.Helper()
	pub := &capturingPublisher{}
	svc, err := NewLedgerService(storage.NewMemoryStore(), weather.Static{Label: label}, pub)
	if err != nil {
		t.Fatal(err)
	}
	svc.now = fixedClock()
	return svc, pub
}

func seedMenu(t *testing.T, svc *LedgerService) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.AddMenuItem(ctx, "Nasi Goreng", "15000"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddMenuItem(ctx, "Es Teh", "5000"); err != nil {
		t.Fatal(err)
	}
}

func TestAddMenuItemValidation(t *testing.T) {
	svc, _ := newTestService(t, "Cerah")
	ctx := context.Background()

	cases := []struct {
		name, price string
		want        error
	}{
		{"", "100", core.ErrEmptyName},
		{"   ", "100", core.ErrEmptyName},
		{"Es Teh", "", core.ErrInvalidAmount},
		{"Es Teh", "-5", core.ErrInvalidAmount},
		{"Es Teh", "lima ribu", core.ErrInvalidAmount},
	}
	for _, tc := range cases {
		if _, err := svc.AddMenuItem(ctx, tc.name, tc.price); !errors.Is(err, tc.want) {
			t.Fatalf("AddMenuItem(%q, %q) = %v, want %v", tc.name, tc.price, err, tc.want)
		}
	}
	if len(svc.Menu()) != 0 {
		t.Fatalf("rejected items must not reach the catalog")
	}

	if _, err := svc.AddMenuItem(ctx, "Es Teh", "5000"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddMenuItem(ctx, "Es Teh", "6000"); !errors.Is(err, core.ErrDuplicateMenuItem) {
		t.Fatalf("expected ErrDuplicateMenuItem, got %v", err)
	}
}

func TestAddToCartAccumulates(t *testing.T) {
	svc, _ := newTestService(t, "Cerah")
	seedMenu(t, svc)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "Nasi Goreng", "2"); err != nil {
		t.Fatal(err)
	}
	line, err := svc.AddToCart(ctx, "Nasi Goreng", "1")
	if err != nil {
		t.Fatal(err)
	}
	if line.Quantity != 3 || line.Subtotal.Rupiah != 45000 {
		t.Fatalf("line = %+v, want quantity 3 subtotal 45000", line)
	}
	if got := svc.CartTotal().Rupiah; got != 45000 {
		t.Fatalf("total = %d, want 45000", got)
	}
}

func TestAddToCartRejections(t *testing.T) {
	svc, _ := newTestService(t, "Cerah")
	seedMenu(t, svc)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "Nasi Goreng", "dua"); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.AddToCart(ctx, "Nasi Goreng", ""); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity for empty text, got %v", err)
	}
	if _, err := svc.AddToCart(ctx, "Bakso", "1"); !errors.Is(err, core.ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got %v", err)
	}
	if len(svc.CartLines()) != 0 {
		t.Fatalf("rejected input must leave the cart empty")
	}
}

func TestCommitPayment(t *testing.T) {
	svc, pub := newTestService(t, "Hujan ringan")
	seedMenu(t, svc)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "Nasi Goreng", "2"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddToCart(ctx, "Es Teh", "1"); err != nil {
		t.Fatal(err)
	}

	receipt, err := svc.CommitPayment(ctx)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if receipt.Total.Rupiah != 35000 {
		t.Fatalf("total = %d, want 35000", receipt.Total.Rupiah)
	}
	if receipt.Description != "Nasi Goreng (x2), Es Teh (x1)" {
		t.Fatalf("description = %q", receipt.Description)
	}
	if receipt.Weather != "Hujan ringan" {
		t.Fatalf("weather = %q", receipt.Weather)
	}
	if string(receipt.Timestamp) != "05/04/2024 12:01:02" {
		t.Fatalf("timestamp = %q", receipt.Timestamp)
	}

	if len(svc.CartLines()) != 0 {
		t.Fatalf("cart must be empty after commit")
	}
	summary := svc.QueryByDate("05/04/2024")
	if len(summary.Rows) != 1 || summary.Income.Rupiah != 35000 {
		t.Fatalf("summary = %+v", summary)
	}

	if len(pub.events) != 1 || pub.events[0].Kind != amqp.EventSale {
		t.Fatalf("expected one sale event, got %+v", pub.events)
	}
}

func TestCommitPaymentEmptyCart(t *testing.T) {
	svc, pub := newTestService(t, "Cerah")
	seedMenu(t, svc)

	if _, err := svc.CommitPayment(context.Background()); !errors.Is(err, core.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if got := svc.QueryByDate("05/04/2024"); len(got.Rows) != 0 {
		t.Fatalf("empty commit must not touch the ledger: %+v", got)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no events expected, got %+v", pub.events)
	}
}

func TestCommitPaymentOfflineWeather(t *testing.T) {
	svc, _ := newTestService(t, weather.LabelOffline)
	seedMenu(t, svc)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "Es Teh", "2"); err != nil {
		t.Fatal(err)
	}
	receipt, err := svc.CommitPayment(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Weather != "Offline" {
		t.Fatalf("weather = %q, want Offline", receipt.Weather)
	}
	if receipt.Total.Rupiah != 10000 {
		t.Fatalf("total = %d, want 10000", receipt.Total.Rupiah)
	}
}

func TestCommitPaymentSaveFailureRollsBack(t *testing.T) {
	pub := &capturingPublisher{}
	store := &failingStore{inner: storage.NewMemoryStore(), failAfter: 2}
	svc, err := NewLedgerService(store, weather.Static{Label: "Cerah"}, pub)
	if err != nil {
		t.Fatal(err)
	}
	svc.now = fixedClock()
	ctx := context.Background()

	seedMenu(t, svc) // two successful saves
	if _, err := svc.AddToCart(ctx, "Es Teh", "1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CommitPayment(ctx); err == nil {
		t.Fatalf("expected save failure to surface")
	}
	if got := svc.QueryByDate("05/04/2024"); len(got.Rows) != 0 {
		t.Fatalf("failed commit must leave the ledger untouched: %+v", got)
	}
	if len(svc.CartLines()) != 1 {
		t.Fatalf("failed commit must keep the cart intact")
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed commit must not publish events")
	}
}

func TestAddExpenseAndQueryByDate(t *testing.T) {
	svc, pub := newTestService(t, "Cerah")

	rec, err := svc.AddExpense(context.Background(), "05/04/2024", "Gas", "20000")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Weather != core.NoWeather {
		t.Fatalf("expense weather = %q, want -", rec.Weather)
	}
	if string(rec.Timestamp) != "05/04/2024 12:01:02" {
		t.Fatalf("timestamp = %q", rec.Timestamp)
	}

	summary := svc.QueryByDate("05/04/2024")
	if summary.Expense.Rupiah != 20000 || summary.Income.Rupiah != 0 {
		t.Fatalf("aggregates = income %d expense %d", summary.Income.Rupiah, summary.Expense.Rupiah)
	}
	if summary.Net().Rupiah != -20000 {
		t.Fatalf("net = %d, want -20000", summary.Net().Rupiah)
	}

	if len(pub.events) != 1 || pub.events[0].Kind != amqp.EventExpense {
		t.Fatalf("expected one expense event, got %+v", pub.events)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	svc, _ := newTestService(t, "Cerah")
	ctx := context.Background()

	if _, err := svc.AddExpense(ctx, "05/04/2024", "", "100"); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	if _, err := svc.AddExpense(ctx, "05/04/2024", "Gas", "dua puluh"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if got := svc.QueryByDate("05/04/2024"); len(got.Rows) != 0 {
		t.Fatalf("rejected expenses must not reach the ledger")
	}
}

func TestQueryByDateUnmatched(t *testing.T) {
	svc, _ := newTestService(t, "Cerah")
	summary := svc.QueryByDate("01/01/2030")
	if len(summary.Rows) != 0 {
		t.Fatalf("expected no rows")
	}
	if summary.Income.Rupiah != 0 || summary.Expense.Rupiah != 0 || summary.Net().Rupiah != 0 {
		t.Fatalf("expected all-zero aggregates, got %+v", summary)
	}
}

func TestQueryByDateNetInvariant(t *testing.T) {
	svc, _ := newTestService(t, "Cerah")
	seedMenu(t, svc)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "Nasi Goreng", "3"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CommitPayment(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddExpense(ctx, "05/04/2024", "Gas", "20000"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddExpense(ctx, "06/04/2024", "Minyak", "12000"); err != nil {
		t.Fatal(err)
	}

	for _, key := range []core.DateKey{"05/04/2024", "06/04/2024", "07/04/2024"} {
		s := svc.QueryByDate(key)
		if s.Net().Rupiah != s.Income.Rupiah-s.Expense.Rupiah {
			t.Fatalf("net invariant broken for %s: %+v", key, s)
		}
	}

	s := svc.QueryByDate("05/04/2024")
	if s.Income.Rupiah != 45000 || s.Expense.Rupiah != 20000 || s.Net().Rupiah != 25000 {
		t.Fatalf("aggregates = %+v", s)
	}
	// Transactions come before expenses, each with its fresh index.
	if s.Rows[0].Source != core.SourceTransaction || s.Rows[0].Index != 0 {
		t.Fatalf("row 0 = %+v", s.Rows[0])
	}
	if s.Rows[1].Source != core.SourceExpense || s.Rows[1].Index != 0 {
		t.Fatalf("row 1 = %+v", s.Rows[1])
	}
}

func TestEditRecord(t *testing.T) {
	svc, pub := newTestService(t, "Cerah")
	if _, err := svc.AddExpense(context.Background(), "05/04/2024", "Gas", "20000"); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.EditRecord(context.Background(), core.SourceExpense, 0, "Gas 3kg", "25000")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Description != "Gas 3kg" || updated.Amount.Rupiah != 25000 {
		t.Fatalf("updated = %+v", updated)
	}

	// Permissive amount: unparseable text becomes zero.
	updated, err = svc.EditRecord(context.Background(), core.SourceExpense, 0, "Gas 3kg", "gratis")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Amount.Rupiah != 0 {
		t.Fatalf("permissive edit amount = %d, want 0", updated.Amount.Rupiah)
	}

	if _, err := svc.EditRecord(context.Background(), core.SourceExpense, 5, "x", "1"); !errors.Is(err, core.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := svc.EditRecord(context.Background(), core.Source("pasar"), 0, "x", "1"); !errors.Is(err, core.ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}

	var kinds []string
	for _, ev := range pub.events {
		kinds = append(kinds, ev.Kind)
	}
	want := []string{amqp.EventExpense, amqp.EventEdit, amqp.EventEdit}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
}

func TestDeleteRecord(t *testing.T) {
	svc, _ := newTestService(t, "Cerah")
	seedMenu(t, svc)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "Es Teh", "1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CommitPayment(ctx); err != nil {
		t.Fatal(err)
	}

	removed, err := svc.DeleteRecord(ctx, core.SourceTransaction, 0)
	if err != nil {
		t.Fatal(err)
	}
	if removed.Amount.Rupiah != 5000 {
		t.Fatalf("removed = %+v", removed)
	}
	if got := svc.QueryByDate(removed.Timestamp.DateKey()); len(got.Rows) != 0 {
		t.Fatalf("former date must have zero rows after delete, got %+v", got)
	}
	if _, err := svc.DeleteRecord(ctx, core.SourceTransaction, 0); !errors.Is(err, core.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange on re-delete, got %v", err)
	}
}

func TestPublisherFailureDoesNotFailOperation(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("broker down")}
	svc, err := NewLedgerService(storage.NewMemoryStore(), weather.Static{Label: "Cerah"}, pub)
	if err != nil {
		t.Fatal(err)
	}
	svc.now = fixedClock()

	if _, err := svc.AddExpense(context.Background(), "05/04/2024", "Gas", "20000"); err != nil {
		t.Fatalf("publish failure must not fail the operation: %v", err)
	}
}

func TestLedgerPersistsAcrossServices(t *testing.T) {
	store := storage.NewMemoryStore()
	svc, err := NewLedgerService(store, weather.Static{Label: "Cerah"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc.now = fixedClock()
	if _, err := svc.AddExpense(context.Background(), "05/04/2024", "Gas", "20000"); err != nil {
		t.Fatal(err)
	}

	// A second service over the same store sees the saved document.
	again, err := NewLedgerService(store, weather.Static{Label: "Cerah"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := again.QueryByDate("05/04/2024"); got.Expense.Rupiah != 20000 {
		t.Fatalf("reloaded expense = %d, want 20000", got.Expense.Rupiah)
	}
}
