// Package scraper implements the site adapter contract, shared fetching and
// pagination helpers, record filtering and the ingestion worker.
package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/benny59/architetti/internal/model"
)

// MaxPages is the hard pagination cap applied to every adapter.
const MaxPages = 10

// Adapter fetches and parses one source's listing pages.
type Adapter interface {
	Scrape(ctx context.Context, seeds []string) ([]model.RawFields, error)
}

// AdapterFunc lets a plain function satisfy Adapter.
type AdapterFunc func(ctx context.Context, seeds []string) ([]model.RawFields, error)

// Scrape calls f.
func (f AdapterFunc) Scrape(ctx context.Context, seeds []string) ([]model.RawFields, error) {
	return f(ctx, seeds)
}

// Registration is one configured source. Built once at startup, read-only after.
type Registration struct {
	Nickname string
	Adapter  Adapter
	Seeds    []string
	Enabled  bool
	Exclude  []string
}

// PageFunc fetches and parses listing page n (1-based).
type PageFunc func(ctx context.Context, page int) ([]model.RawFields, error)

// Paginate walks pages from 1 until a page yields no items or maxPages is
// reached. maxPages outside 1..MaxPages is clamped to MaxPages.
func Paginate(ctx context.Context, maxPages int, fetch PageFunc) ([]model.RawFields, error) {
	if maxPages <= 0 || maxPages > MaxPages {
		maxPages = MaxPages
	}

	var all []model.RawFields
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		batch, err := fetch(ctx, page)
		if err != nil {
			return all, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
	}

	return all, nil
}

// PageURL appends param=page to seed, using "?" or "&" as the seed requires.
func PageURL(seed, param string, page int) string {
	sep := "?"
	if strings.Contains(seed, "?") {
		sep = "&"
	}
	return seed + sep + param + "=" + strconv.Itoa(page)
}
