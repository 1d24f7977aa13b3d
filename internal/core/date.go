package core

import (
	"errors"
	"strings"
	"time"
)

const (
	timestampLayout = "02/01/2006 15:04:05"
	dateKeyLayout   = "02/01/2006"
	timeOnlyLayout  = "15:04:05"
)

// Timestamp is the stored form of a record time: "dd/mm/yyyy HH:MM:SS" in
// local time. Records are filtered by date with a string prefix match
// against a DateKey, so the stored form is the source of truth.
type Timestamp string

// DateKey is a canonical "dd/mm/yyyy" day key. Keys are only ever built
// from a real time.Time or by strict parsing, which keeps ambiguous
// spellings like "1/4/2024" out of the system.
type DateKey string

var ErrInvalidDateKey = errors.New("invalid date key")

// NewTimestamp formats t as a stored record timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.Format(timestampLayout))
}

// MatchesDate reports whether the timestamp falls on the given day.
func (ts Timestamp) MatchesDate(key DateKey) bool {
	return strings.HasPrefix(string(ts), string(key))
}

// DateKey returns the day portion of the timestamp.
func (ts Timestamp) DateKey() DateKey {
	if len(ts) < len(dateKeyLayout) {
		return ""
	}
	return DateKey(ts[:len(dateKeyLayout)])
}

// NewDateKey returns the canonical key for the day of t.
func NewDateKey(t time.Time) DateKey {
	return DateKey(t.Format(dateKeyLayout))
}

// ParseDateKey validates s as a canonical "dd/mm/yyyy" key. Parsing and
// re-formatting must round-trip exactly, so short forms are rejected.
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		return "", ErrInvalidDateKey
	}
	if t.Format(dateKeyLayout) != s {
		return "", ErrInvalidDateKey
	}
	return DateKey(s), nil
}

// WithTime combines the day key with the time-of-day of t, the stored
// form used for manual expenses on a selected date.
func (k DateKey) WithTime(t time.Time) Timestamp {
	return Timestamp(string(k) + " " + t.Format(timeOnlyLayout))
}
