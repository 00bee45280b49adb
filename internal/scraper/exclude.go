package scraper

import (
	"strings"

	"github.com/benny59/architetti/internal/model"
)

// Excluded reports whether any term appears (case-insensitive) in the
// record's title, category or summary. Matching records are dropped before
// the novelty check.
func Excluded(rec model.Record, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	combined := strings.ToLower(rec.Title + " " + rec.Category + " " + rec.Summary)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
