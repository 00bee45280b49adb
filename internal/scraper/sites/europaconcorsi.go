package sites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/normalizer"
	"github.com/benny59/architetti/internal/scraper"
)

// EuropaconcorsiLoginURL is the form-based login endpoint.
const EuropaconcorsiLoginURL = "https://europaconcorsi.com/people/login"

const italianPlaceSuffix = ", ITALIA"

var (
	// ErrLoginFailed is returned when the login page or form post fails.
	ErrLoginFailed = errors.New("login failed")
	// ErrTokenNotFound is returned when the login page has no anti-forgery token.
	ErrTokenNotFound = errors.New("authenticity token not found on login page")
)

// EuropaconcorsiConfig holds the session settings.
type EuropaconcorsiConfig struct {
	LoginURL  string
	Username  string
	Password  string
	UserAgent string
	Timeout   time.Duration
	MaxPages  int
}

// Europaconcorsi scrapes the members-only competition listing. Every Scrape
// opens a fresh cookie session and logs in before visiting the seeds.
type Europaconcorsi struct {
	cfg EuropaconcorsiConfig
	log logger.Logger
}

// NewEuropaconcorsi constructs the adapter.
func NewEuropaconcorsi(cfg EuropaconcorsiConfig, log logger.Logger) *Europaconcorsi {
	if cfg.LoginURL == "" {
		cfg.LoginURL = EuropaconcorsiLoginURL
	}
	return &Europaconcorsi{cfg: cfg, log: log.With(logger.Component("europaconcorsi"))}
}

// Scrape logs in, then walks each seed with ?page=N. Only Italian
// competitions are returned.
func (a *Europaconcorsi) Scrape(ctx context.Context, seeds []string) ([]model.RawFields, error) {
	c := a.newCollector(ctx)

	if err := a.login(c); err != nil {
		return nil, err
	}
	a.log.Info("Login successful")

	var all []model.RawFields
	for _, seed := range seeds {
		base := origin(seed)
		items, err := scraper.Paginate(ctx, a.cfg.MaxPages, func(_ context.Context, page int) ([]model.RawFields, error) {
			return a.visit(c, scraper.PageURL(seed, "page", page), base)
		})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

func (a *Europaconcorsi) newCollector(ctx context.Context) *colly.Collector {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	}
	if a.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(a.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	if a.cfg.Timeout > 0 {
		c.SetRequestTimeout(a.cfg.Timeout)
	}
	return c
}

func (a *Europaconcorsi) login(c *colly.Collector) error {
	var token string
	page := c.Clone()
	page.OnHTML(`input[name="authenticity_token"]`, func(e *colly.HTMLElement) {
		if token == "" {
			token = e.Attr("value")
		}
	})
	if err := page.Visit(a.cfg.LoginURL); err != nil {
		return fmt.Errorf("%w: login page: %v", ErrLoginFailed, err)
	}
	if token == "" {
		return ErrTokenNotFound
	}

	form := c.Clone()
	err := form.Post(a.cfg.LoginURL, map[string]string{
		"utf8":                "✓",
		"person[email]":       a.cfg.Username,
		"person[password]":    a.cfg.Password,
		"authenticity_token":  token,
		"person[remember_me]": "true",
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	return nil
}

func (a *Europaconcorsi) visit(c *colly.Collector, url, base string) ([]model.RawFields, error) {
	var items []model.RawFields
	page := c.Clone()
	page.OnHTML("html", func(e *colly.HTMLElement) {
		items = ParseEuropaconcorsi(e.DOM, base)
	})
	if err := page.Visit(url); err != nil {
		return nil, fmt.Errorf("visit %s: %w", url, err)
	}
	return items, nil
}

// ParseEuropaconcorsi extracts one item per div.competition located in Italy.
func ParseEuropaconcorsi(root *goquery.Selection, base string) []model.RawFields {
	var out []model.RawFields
	root.Find("div.competition").Each(func(_ int, comp *goquery.Selection) {
		place := strings.ToUpper(trimBullet(strippedText(comp.Find("span.place").First(), "")))
		if !strings.HasSuffix(place, italianPlaceSuffix) {
			return
		}
		organization := trimBullet(strippedText(comp.Find("span.organization").First(), ""))

		var paragraphs []string
		comp.Find("div.description").First().Find("p").Each(func(_ int, p *goquery.Selection) {
			paragraphs = append(paragraphs, strippedText(p, " "))
		})

		href, _ := comp.Find("a.permalink").First().Attr("href")

		out = append(out, model.RawFields{
			normalizer.KeyTitle:    strippedText(comp.Find("div.title").First(), ""),
			normalizer.KeyDate:     strippedText(comp.Find("span.deadline").First(), ""),
			normalizer.KeyCategory: organization + " - " + place,
			normalizer.KeySummary:  strings.Join(paragraphs, " "),
			normalizer.KeyURL:      resolve(base, href),
			"place":                place,
			"organization":         organization,
		})
	})
	return out
}

func trimBullet(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "·"))
}
