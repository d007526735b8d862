package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/scrape/internal/server"
)

type ServeCmd struct {
	Port            int           `help:"Port to listen on." default:"4000" env:"PORT"`
	MetricsPath     string        `help:"Path serving Prometheus metrics, empty to disable." default:"/metrics" env:"METRICS_PATH"`
	ShutdownTimeout time.Duration `help:"Grace period for in-flight requests on shutdown." default:"15s" env:"SHUTDOWN_TIMEOUT"`
}

func (c *ServeCmd) Run(g *Globals, ctx context.Context) error {
	cfg := g.config()
	cfg.Port = c.Port
	cfg.MetricsPath = c.MetricsPath
	cfg.ShutdownTimeout = c.ShutdownTimeout
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Debug("Configuration", "port", cfg.Port, "timeout", cfg.NavigationTimeout,
		"viewport", [2]int{cfg.WindowWidth, cfg.WindowHeight}, "allowed_hosts", cfg.AllowedHosts)

	return server.New(cfg, newCrawler(cfg)).Run(ctx)
}
