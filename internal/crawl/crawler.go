// Package crawl loads an entry page, follows its same-site links one hop
// deep and collects the visible text of every linked page.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/scrape/internal/metrics"
)

// ErrEntryNavigation is returned when the entry URL itself cannot be loaded.
var ErrEntryNavigation = errors.New("failed to navigate to entry URL")

// Browser is a single browser tab that can be pointed at pages.
type Browser interface {
	// Navigate loads url and waits until the network is quiet.
	Navigate(ctx context.Context, url string) error
	// Links returns the resolved href of every anchor on the current page.
	Links(ctx context.Context) ([]string, error)
	// Text returns the rendered text of the current page body.
	Text(ctx context.Context) (string, error)
	Close() error
}

// Launcher starts a fresh browser.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LaunchFunc adapts a function to the Launcher interface.
type LaunchFunc func(ctx context.Context) (Browser, error)

func (f LaunchFunc) Launch(ctx context.Context) (Browser, error) {
	return f(ctx)
}

// Result is what one crawl produced.
type Result struct {
	// Content is the text of every visited page, each followed by "\n".
	Content string
	// UniqueLinks are the filtered, deduplicated links that were visited.
	UniqueLinks []string
	// Links are all anchors of the entry page as found.
	Links []string

	Visited int
	Failed  int
}

// Crawler runs crawls, each one in its own browser.
type Crawler struct {
	launcher     Launcher
	allowedHosts []string
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithAllowedHosts sets hosts whose links are followed regardless of the
// entry URL's host.
func WithAllowedHosts(hosts ...string) Option {
	return func(c *Crawler) {
		c.allowedHosts = append([]string(nil), hosts...)
	}
}

// New creates a Crawler. Without options only github.com is allowed besides
// the entry host.
func New(launcher Launcher, opts ...Option) *Crawler {
	c := &Crawler{
		launcher:     launcher,
		allowedHosts: []string{"github.com"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl loads entryURL, then visits each of its filtered links in order.
// Failures on linked pages are logged and skipped. The browser is closed
// before Crawl returns.
func (c *Crawler) Crawl(ctx context.Context, entryURL string) (*Result, error) {
	b, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	metrics.BrowsersActive.Inc()
	defer func() {
		metrics.BrowsersActive.Dec()
		if err := b.Close(); err != nil {
			log.Warn("Closing browser", "err", err)
		}
	}()

	log.Info("Navigating to URL", "url", entryURL)
	if err := b.Navigate(ctx, entryURL); err != nil {
		metrics.NavigationFailures.WithLabelValues(metrics.StageEntry).Inc()
		return nil, fmt.Errorf("%w: %w", ErrEntryNavigation, err)
	}

	links, err := b.Links(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract links from %s: %w", entryURL, err)
	}
	if links == nil {
		links = []string{}
	}
	log.Debug("Links found", "url", entryURL, "count", len(links), "links", links)

	res := &Result{
		Links:       links,
		UniqueLinks: FilterLinks(links, entryURL, c.allowedHosts...),
	}
	log.Debug("Unique links", "url", entryURL, "count", len(res.UniqueLinks), "links", res.UniqueLinks)

	var content strings.Builder
	for _, link := range res.UniqueLinks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := visit(ctx, b, link)
		if err != nil {
			res.Failed++
			metrics.NavigationFailures.WithLabelValues(metrics.StageLink).Inc()
			log.Error("Error processing link", "url", link, "err", err)
			continue
		}

		content.WriteString(text)
		content.WriteByte('\n')
		res.Visited++
		metrics.PagesVisited.Inc()
	}
	res.Content = content.String()

	log.Info("Crawl finished", "url", entryURL, "visited", res.Visited, "failed", res.Failed)
	return res, nil
}

func visit(ctx context.Context, b Browser, link string) (string, error) {
	log.Info("Navigating to unique link", "url", link)
	if err := b.Navigate(ctx, link); err != nil {
		return "", err
	}
	text, err := b.Text(ctx)
	if err != nil {
		return "", err
	}
	log.Debug("Content extracted", "url", link, "bytes", len(text))
	return text, nil
}
