package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/scrape/internal/writer"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true)
)

type FetchCmd struct {
	URL    string `arg:"" help:"Entry URL to scrape."`
	Output string `help:"Also write the JSON result into this directory." short:"o" type:"path"`
	Quiet  bool   `help:"Hide the spinner and summary." short:"q"`
}

func (c *FetchCmd) Run(g *Globals, ctx context.Context) error {
	cfg := g.config()
	if err := cfg.Validate(); err != nil {
		return err
	}

	var sp *spinner.Spinner
	if !c.Quiet {
		// Keep the spinner line readable unless debugging.
		if !g.Debug {
			log.SetLevel(log.WarnLevel)
		}
		sp = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.Suffix = " " + shortenURL(c.URL)
		sp.Start()
	}

	start := time.Now()
	res, err := newCrawler(cfg).Crawl(ctx, c.URL)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return err
	}

	payload, err := res.Payload()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	var path string
	if c.Output != "" {
		w, err := writer.New(c.Output)
		if err != nil {
			return err
		}
		if path, err = w.Write(c.URL, payload); err != nil {
			return err
		}
	}

	if !c.Quiet {
		fmt.Fprintln(os.Stderr, okStyle.Render("✓ "+shortenURL(c.URL))+" "+
			infoStyle.Render(fmt.Sprintf("%d links, %d followed, %d visited, %d failed", len(res.Links), len(res.UniqueLinks), res.Visited, res.Failed))+" "+
			dimStyle.Render(time.Since(start).Round(time.Millisecond).String()))
		if path != "" {
			fmt.Fprintln(os.Stderr, dimStyle.Render("saved to "+path))
		}
	}
	return nil
}

// shortenURL keeps host and the tail of the path so long URLs fit one line.
func shortenURL(rawURL string) string {
	const maxLen = 40
	if len(rawURL) <= maxLen {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err == nil && u.Host != "" {
		domain, path := u.Host, u.Path
		keep := maxLen - len(domain) - 3
		if keep < 0 {
			keep = 0
		}
		if len(path) > keep {
			path = "..." + path[len(path)-keep:]
		}
		return domain + path
	}
	return "..." + rawURL[len(rawURL)-maxLen:]
}
