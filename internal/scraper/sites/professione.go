package sites

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/normalizer"
	"github.com/benny59/architetti/internal/scraper"
)

// ProfessioneArchitettoProfile parses dd.mm.yyyy publication dates.
var ProfessioneArchitettoProfile = normalizer.Profile{
	TitleKey:    normalizer.KeyTitle,
	DateKey:     normalizer.KeyDate,
	CategoryKey: normalizer.KeyCategory,
	SummaryKey:  normalizer.KeySummary,
	URLKey:      normalizer.KeyURL,
	DateLayout:  "02.01.2006",
}

// ProfessioneArchitetto scrapes the design competition listing of
// professionearchitetto.it, paginated with ?pag=N.
type ProfessioneArchitetto struct {
	fetcher  *scraper.Fetcher
	maxPages int
}

// NewProfessioneArchitetto constructs the adapter.
func NewProfessioneArchitetto(f *scraper.Fetcher, maxPages int) *ProfessioneArchitetto {
	return &ProfessioneArchitetto{fetcher: f, maxPages: maxPages}
}

// Scrape walks every seed's pages in order.
func (a *ProfessioneArchitetto) Scrape(ctx context.Context, seeds []string) ([]model.RawFields, error) {
	var all []model.RawFields
	for _, seed := range seeds {
		base := origin(seed)
		items, err := scraper.Paginate(ctx, a.maxPages, func(ctx context.Context, page int) ([]model.RawFields, error) {
			doc, err := a.fetcher.Document(ctx, scraper.PageURL(seed, "pag", page))
			if err != nil {
				return nil, err
			}
			return ParseProfessioneArchitetto(doc, base), nil
		})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// ParseProfessioneArchitetto extracts one item per article.addlink.
func ParseProfessioneArchitetto(doc *goquery.Document, base string) []model.RawFields {
	var out []model.RawFields
	doc.Find("article.addlink").Each(func(_ int, art *goquery.Selection) {
		heading := art.Find("h2.entry-title").First()
		href, _ := heading.Find("a").Attr("href")
		image, _ := art.Find("img").First().Attr("data-src")

		out = append(out, model.RawFields{
			normalizer.KeyTitle:    strings.TrimSpace(heading.Text()),
			normalizer.KeyURL:      resolve(base, href),
			normalizer.KeyDate:     strings.TrimSpace(art.Find("time.date").First().Text()),
			normalizer.KeyCategory: strings.TrimSpace(art.Find("span.categoria").First().Text()),
			normalizer.KeySummary:  strings.TrimSpace(art.Find("div.entry-summary").First().Text()),
			"image":                image,
		})
	})
	return out
}
