package sites

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/normalizer"
	"github.com/benny59/architetti/internal/scraper"
)

// AriaDetailURL is the Sintel tender detail page; the id is appended.
const AriaDetailURL = "https://www.sintel.regione.lombardia.it/eprocdata/auctionDetail.xhtml?id="

// Result table columns, in page order.
const (
	ariaID        = "ID SINTEL"
	ariaStation   = "STAZIONE APPALTANTE"
	ariaProcedure = "NOME PROCEDURA"
	ariaCode      = "CODICE GARA"
	ariaType      = "TIPO"
	ariaState     = "STATO"
	ariaScope     = "AMBITO DELLA PROCEDURA"
	ariaValue     = "VALORE ECONOMICO"
	ariaStart     = "DATA INIZIO"
	ariaEnd       = "DATA FINE RICEZIONE OFFERTE"
)

var ariaColumns = []string{
	ariaID, ariaStation, ariaProcedure, ariaCode, ariaType,
	ariaState, ariaScope, ariaValue, ariaStart, ariaEnd,
}

// AriaProfile identifies tenders by their Sintel id: the contracting station
// used as title repeats across tenders.
var AriaProfile = normalizer.Profile{
	TitleKey:     ariaStation,
	DateKey:      ariaEnd,
	CategoryKey:  ariaType,
	SummaryKey:   ariaProcedure,
	URLKey:       normalizer.KeyURL,
	IdentityKeys: []string{ariaID},
}

// Renderer returns the outer HTML of the filtered result table for a seed.
type Renderer interface {
	Render(ctx context.Context, seed string) (string, error)
}

// Aria scrapes the Sintel e-procurement search, which renders client side
// and needs a browser session to apply filters and sorting.
type Aria struct {
	renderer Renderer
	log      logger.Logger
}

// NewAria constructs the adapter around a renderer.
func NewAria(r Renderer, log logger.Logger) *Aria {
	return &Aria{renderer: r, log: log.With(logger.Component("aria"))}
}

// Scrape renders each seed once: the page size is raised to 200, so a single
// page is read per seed.
func (a *Aria) Scrape(ctx context.Context, seeds []string) ([]model.RawFields, error) {
	var all []model.RawFields
	for _, seed := range seeds {
		items, err := scraper.Paginate(ctx, 1, func(ctx context.Context, _ int) ([]model.RawFields, error) {
			html, err := a.renderer.Render(ctx, seed)
			if err != nil {
				return nil, err
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
			if err != nil {
				return nil, fmt.Errorf("parse result table: %w", err)
			}
			return ParseAria(doc.Selection), nil
		})
		if err != nil {
			return nil, err
		}
		a.log.Debug("Result table parsed", logger.String("seed", seed), logger.Int("rows", len(items)))
		all = append(all, items...)
	}
	return all, nil
}

// ParseAria reads one item per result row with the full column set.
func ParseAria(root *goquery.Selection) []model.RawFields {
	var out []model.RawFields
	root.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < len(ariaColumns) {
			return
		}
		raw := make(model.RawFields, len(ariaColumns)+1)
		cells.Each(func(i int, td *goquery.Selection) {
			if i < len(ariaColumns) {
				raw[ariaColumns[i]] = collapse(td.Text())
			}
		})
		if id := raw[ariaID]; id != "" {
			raw[normalizer.KeyURL] = AriaDetailURL + url.QueryEscape(id)
		}
		out = append(out, raw)
	})
	return out
}

// Element ids of the Sintel search form.
const (
	sintelLegalSiteButton = "#regionSua"
	sintelLegalSiteAll    = "j_idt28:j_idt31:auctionLegalSite:0"
	sintelLegalSiteRegion = "j_idt28:j_idt31:auctionLegalSite:5"
	sintelSubmit          = "j_idt28:j_idt31:template-contactform-submit"
	sintelPageSize        = "j_idt154:j_idt226:j_idt237"
	sintelResult          = "#result"
)

const sintelSortByEndDate = `mojarra.jsfcljs(document.getElementById('j_idt154:j_idt165'),` +
	`{'j_idt154:j_idt165:j_idt167:10:j_idt177':'j_idt154:j_idt165:j_idt167:10:j_idt177'},'');`

// ChromeRenderer drives headless Chrome through the Sintel search form.
type ChromeRenderer struct {
	ExecPath string
	Timeout  time.Duration
}

func byID(id string) string {
	return fmt.Sprintf("document.getElementById(%q)", id)
}

// Render opens a fresh browser, filters by legal site, sorts by end date,
// shows 200 rows and returns the result table.
func (r *ChromeRenderer) Render(ctx context.Context, seed string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	pageSize := fmt.Sprintf(
		`(() => { const s = document.getElementsByName(%q)[0]; s.value = '200'; s.dispatchEvent(new Event('change')); })()`,
		sintelPageSize,
	)

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(seed),
		chromedp.WaitVisible(sintelLegalSiteButton, chromedp.ByQuery),
		chromedp.Click(sintelLegalSiteButton, chromedp.ByQuery),
		chromedp.Click(byID(sintelLegalSiteAll), chromedp.ByJSPath),
		chromedp.Click(byID(sintelLegalSiteRegion), chromedp.ByJSPath),
		chromedp.Click(byID(sintelSubmit), chromedp.ByJSPath),
		chromedp.Sleep(5*time.Second),
		chromedp.Evaluate(sintelSortByEndDate, nil),
		chromedp.Sleep(time.Second),
		chromedp.Evaluate(sintelSortByEndDate, nil),
		chromedp.Evaluate(pageSize, nil),
		chromedp.Sleep(5*time.Second),
		chromedp.WaitReady(sintelResult, chromedp.ByQuery),
		chromedp.OuterHTML(sintelResult, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser session: %w", err)
	}
	return html, nil
}
