// Package model defines shared data structures for the watcher.
package model

import "strings"

// Placeholders stored when a source does not publish a field.
const (
	NotAvailable     = "Informazione non disponibile"
	URLNotAvailable  = "URL non disponibile"
	DateNotAvailable = "Data non disponibile"
)

// RawFields is what a site adapter extracts for one announcement, keyed by
// source-specific field names. Unknown keys are ignored downstream.
type RawFields map[string]string

// Get returns the trimmed value for key, or "" when absent.
func (r RawFields) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Record is a normalised announcement. It mirrors one row of a source
// partition (records_<nickname>) minus the auto-increment id.
type Record struct {
	ID       int64  `db:"id" json:"id,omitempty"`
	Title    string `db:"title" json:"title"`
	Date     string `db:"date" json:"date"`
	Category string `db:"category" json:"category"`
	Summary  string `db:"summary" json:"summary"`
	URL      string `db:"url" json:"url"`
	Checksum string `db:"checksum" json:"checksum"`
}

// HasURL reports whether the record links to an absolute detail page.
func (r Record) HasURL() bool {
	return strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://")
}
