// Package crawler fetches the outage page and parses it into sections.
package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"outage_bot/internal/model"
	"outage_bot/internal/parser"
)

// PageFetcher downloads a page body.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Crawler combines a fetcher with the page parser for one URL.
type Crawler struct {
	fetcher PageFetcher
	url     string
	log     *slog.Logger
}

// New creates a Crawler for url.
func New(f PageFetcher, url string, log *slog.Logger) *Crawler {
	return &Crawler{fetcher: f, url: url, log: log}
}

// URL returns the crawled page address.
func (c *Crawler) URL() string {
	return c.url
}

// Crawl fetches and parses the page. Fetch errors are returned as is so
// callers can inspect *fetcher.FetchError.
func (c *Crawler) Crawl(ctx context.Context) (*model.CrawlResult, error) {
	body, err := c.fetcher.Fetch(ctx, c.url)
	if err != nil {
		return nil, err
	}

	res, err := parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.url, err)
	}

	c.log.Debug("crawled page",
		"url", c.url,
		"last_update", res.LastUpdate,
		"announce_key", res.AnnounceKey,
		"sections", len(res.Sections),
	)
	return res, nil
}

// Invalidate drops a cached copy of the page, if the fetcher keeps one, so
// the next Crawl goes to the network.
func (c *Crawler) Invalidate() {
	if f, ok := c.fetcher.(interface{ Forget(url string) }); ok {
		f.Forget(c.url)
	}
}
