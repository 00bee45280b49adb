package sites

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/normalizer"
	"github.com/benny59/architetti/internal/scraper"
)

// Labels printed before each field of a Genova tender.
const (
	genovaTitle       = "Titolo :"
	genovaType        = "Tipologia appalto :"
	genovaAmount      = "Importo :"
	genovaPublished   = "Data pubblicazione :"
	genovaExpires     = "Data scadenza :"
	genovaReference   = "Riferimento procedura :"
	genovaStatus      = "Stato :"
	genovaDateLayout  = "02/01/2006"
	genovaDetailTitle = "Visualizza scheda"
)

// GenovaProfile maps the portal's labels: the deadline is the record date,
// the procedure reference its category and the amount its summary.
var GenovaProfile = normalizer.Profile{
	TitleKey:    genovaTitle,
	DateKey:     genovaExpires,
	CategoryKey: genovaReference,
	SummaryKey:  genovaAmount,
	URLKey:      normalizer.KeyURL,
}

// Genova scrapes the tender portal of the Comune di Genova, paginated with
// &pag=N.
type Genova struct {
	fetcher  *scraper.Fetcher
	maxPages int
}

// NewGenova constructs the adapter.
func NewGenova(f *scraper.Fetcher, maxPages int) *Genova {
	return &Genova{fetcher: f, maxPages: maxPages}
}

// Scrape walks every seed's pages in order.
func (a *Genova) Scrape(ctx context.Context, seeds []string) ([]model.RawFields, error) {
	var all []model.RawFields
	for _, seed := range seeds {
		items, err := scraper.Paginate(ctx, a.maxPages, func(ctx context.Context, page int) ([]model.RawFields, error) {
			doc, err := a.fetcher.Document(ctx, scraper.PageURL(seed, "pag", page))
			if err != nil {
				return nil, err
			}
			return ParseGenova(doc, seed), nil
		})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// ParseGenova extracts one item per div.list-item. Items without a title or
// without a dd/mm/yyyy publication date are skipped.
func ParseGenova(doc *goquery.Document, base string) []model.RawFields {
	var out []model.RawFields
	doc.Find("div.list-item").Each(func(_ int, item *goquery.Selection) {
		title := textAfterLabel(item, genovaTitle)
		published := textAfterLabel(item, genovaPublished)
		if title == "" {
			return
		}
		if _, err := time.Parse(genovaDateLayout, published); err != nil {
			return
		}

		href, _ := item.Find(`a[title="` + genovaDetailTitle + `"]`).First().Attr("href")

		out = append(out, model.RawFields{
			genovaTitle:       title,
			genovaType:        textAfterLabel(item, genovaType),
			genovaAmount:      textAfterLabel(item, genovaAmount),
			genovaPublished:   published,
			genovaExpires:     collapse(textAfterLabel(item, genovaExpires)),
			genovaReference:   textAfterLabel(item, genovaReference),
			genovaStatus:      textAfterLabel(item, genovaStatus),
			normalizer.KeyURL: resolve(base, href),
		})
	})
	return out
}
