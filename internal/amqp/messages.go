package amqp

import (
	"encoding/json"
	"time"

	"kasir/internal/core"
)

// Event kinds published to the ledger-events queue.
const (
	EventSale    = "sale"
	EventExpense = "expense"
	EventEdit    = "edit"
	EventDelete  = "delete"
)

// LedgerEvent describes one ledger mutation. The worker archives these
// into SQLite; the JSON document of record is never reconstructed from
// them.
type LedgerEvent struct {
	Kind        string    `json:"kind"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Weather     string    `json:"weather"`
	RecordedAt  string    `json:"recorded_at"`
	PublishedAt time.Time `json:"published_at"`
}

// NewRecordEvent builds an event from a ledger record.
func NewRecordEvent(kind string, src core.Source, r core.Record) *LedgerEvent {
	return &LedgerEvent{
		Kind:        kind,
		Source:      string(src),
		Description: r.Description,
		Amount:      r.Amount.Rupiah,
		Weather:     r.Weather,
		RecordedAt:  string(r.Timestamp),
		PublishedAt: time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
