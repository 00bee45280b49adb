package sites

import (
	"context"

	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/normalizer"
	"github.com/benny59/architetti/internal/scraper"
)

// DummyProfile identifies the fixed records by their id.
var DummyProfile = normalizer.Profile{
	TitleKey:     normalizer.KeyTitle,
	DateKey:      normalizer.KeyDate,
	CategoryKey:  normalizer.KeyCategory,
	SummaryKey:   normalizer.KeySummary,
	URLKey:       normalizer.KeyURL,
	IdentityKeys: []string{"id"},
}

// Dummy returns three fixed records. Used for smoke tests and dry runs.
func Dummy() scraper.Adapter {
	return scraper.AdapterFunc(func(context.Context, []string) ([]model.RawFields, error) {
		return []model.RawFields{
			{"id": "1", "title": "Titolo 1", "date": "2024-01-01", "category": "Categoria 1", "summary": "Riassunto 1"},
			{"id": "2", "title": "Titolo 2", "date": "2024-01-02", "category": "Categoria 2", "summary": "Riassunto 2"},
			{"id": "3", "title": "Titolo 3", "date": "2024-01-03", "category": "Categoria 3", "summary": "Riassunto 3"},
		}, nil
	})
}
