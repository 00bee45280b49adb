package sites

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/normalizer"
	"github.com/benny59/architetti/internal/scraper"
)

// DemanioBaseURL prefixes the relative detail links of the listing.
const DemanioBaseURL = "https://www.agenziademanio.it"

// Raw keys produced by the Demanio adapter.
const (
	demanioTitle       = "titolo"
	demanioCIG         = "cig"
	demanioRegion      = "regione"
	demanioTown        = "comune"
	demanioProcedure   = "tipo_procedura"
	demanioSubject     = "oggetto_gara"
	demanioPublished   = "data_pubblicazione"
	demanioDeadline    = "termine_partecipazione"
	demanioDescription = "descrizione"
	demanioCategory    = "categoria"
)

// DemanioProfile keeps the participation deadline verbatim as the date.
var DemanioProfile = normalizer.Profile{
	TitleKey:    demanioTitle,
	DateKey:     demanioDeadline,
	CategoryKey: demanioCategory,
	SummaryKey:  demanioDescription,
	URLKey:      normalizer.KeyURL,
}

var demanioLabels = map[string]string{
	demanioCIG:       "CIG:",
	demanioRegion:    "Regione:",
	demanioTown:      "Comune:",
	demanioProcedure: "Tipo procedura:",
	demanioSubject:   "Oggetto della gara:",
	demanioPublished: "Data Pubblicazione bando:",
	demanioDeadline:  "Termine per partecipare:",
}

// Demanio scrapes the Agenzia del Demanio works tenders, paginated with &pag=N.
type Demanio struct {
	fetcher  *scraper.Fetcher
	maxPages int
	baseURL  string
}

// NewDemanio constructs the adapter. baseURL prefixes detail links.
func NewDemanio(f *scraper.Fetcher, maxPages int, baseURL string) *Demanio {
	return &Demanio{fetcher: f, maxPages: maxPages, baseURL: baseURL}
}

// Scrape walks every seed's pages in order.
func (a *Demanio) Scrape(ctx context.Context, seeds []string) ([]model.RawFields, error) {
	var all []model.RawFields
	for _, seed := range seeds {
		items, err := scraper.Paginate(ctx, a.maxPages, func(ctx context.Context, page int) ([]model.RawFields, error) {
			doc, err := a.fetcher.Document(ctx, scraper.PageURL(seed, "pag", page))
			if err != nil {
				return nil, err
			}
			return ParseDemanio(doc, a.baseURL), nil
		})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// ParseDemanio extracts one item per listing card.
func ParseDemanio(doc *goquery.Document, baseURL string) []model.RawFields {
	var out []model.RawFields
	doc.Find("div.col-sm-12.col-md-12.col-lg-6.mb-4").Each(func(_ int, card *goquery.Selection) {
		heading := card.Find("h2.card-title").First()
		href, _ := heading.Find("a").Attr("href")

		raw := model.RawFields{
			demanioTitle:       strings.TrimSpace(heading.Text()),
			demanioDescription: demanioDescriptionText(card),
		}
		if href != "" {
			raw[normalizer.KeyURL] = resolve(baseURL, href)
		}
		for key, label := range demanioLabels {
			raw[key] = demanioField(card, label)
		}

		parts := []string{raw[demanioSubject], raw[demanioRegion], raw[demanioTown], raw[demanioCIG]}
		for i, part := range parts {
			if part == "" {
				parts[i] = model.NotAvailable
			}
		}
		raw[demanioCategory] = collapse(strings.Join(parts, " "))

		out = append(out, raw)
	})
	return out
}

func demanioField(card *goquery.Selection, label string) string {
	var value string
	card.Find("p.color_text_gare").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if !strings.Contains(p.Find("strong").Text(), label) {
			return true
		}
		value = strings.TrimSpace(strings.Replace(p.Text(), label, "", 1))
		return false
	})
	return value
}

func demanioDescriptionText(card *goquery.Selection) string {
	var value string
	card.Find("p.color_text_gare").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if !strings.Contains(p.Text(), "Descrizione:") {
			return true
		}
		p = p.Clone()
		p.Find("span.skip").Remove()
		value = strings.TrimSpace(strings.Replace(p.Text(), "Descrizione:", "", 1))
		return false
	})
	return value
}
