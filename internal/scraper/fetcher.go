package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"github.com/benny59/architetti/internal/logger"
)

// ErrUnexpectedStatus is returned for non-2xx responses that are not retried.
var ErrUnexpectedStatus = errors.New("unexpected status")

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	maxBodyBytes       = 10 << 20
)

// FetcherConfig tunes a Fetcher.
type FetcherConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	UserAgent   string
	// InitialInterval is the first backoff delay; zero uses the library default.
	InitialInterval time.Duration
}

// Fetcher performs GET requests with a shared client, retrying network
// errors and 408/429/5xx responses with exponential backoff.
type Fetcher struct {
	client *http.Client
	cfg    FetcherConfig
	log    logger.Logger
}

// NewFetcher constructs a fetcher with a shared HTTP client.
func NewFetcher(cfg FetcherConfig, log logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		log:    log.With(logger.Component("fetcher")),
	}
}

// Client exposes the underlying HTTP client for adapters that drive their
// own session.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// UserAgent is the header value sent with every request.
func (f *Fetcher) UserAgent() string {
	return f.cfg.UserAgent
}

// Get returns the body of url.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0

	op := func() error {
		attempt++
		b, err := f.do(ctx, url)
		if err != nil {
			f.log.Debug("Fetch attempt failed",
				logger.String("url", url),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			return err
		}
		body = b
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	if f.cfg.InitialInterval > 0 {
		eb.InitialInterval = f.cfg.InitialInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.cfg.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return body, nil
}

// Document fetches url and parses it as HTML.
func (f *Fetcher) Document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		if retryable(resp.StatusCode) {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	return body, nil
}

func retryable(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}
