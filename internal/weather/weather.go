// Package weather tags sales with the current local weather. The lookup
// is strictly best-effort: every failure mode degrades to a sentinel
// label and never propagates an error into the payment flow.
package weather

import "context"

const (
	// LabelUnavailable is stored when the service answered but not with
	// a usable result (non-200 response).
	LabelUnavailable = "Cuaca Tidak Tersedia"
	// LabelOffline is stored on any transport failure, timeout, malformed
	// body, or missing API key.
	LabelOffline = "Offline"
)

// Provider returns a short human-readable weather label. Implementations
// must return a sentinel instead of failing; the ctx bounds the lookup.
type Provider interface {
	CurrentLabel(ctx context.Context) string
}

// Static always answers with a fixed label. It backs tests and runs where
// the lookup is disabled outright.
type Static struct {
	Label string
}

func (s Static) CurrentLabel(context.Context) string {
	return s.Label
}
