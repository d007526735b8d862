// Package server exposes the crawler over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/go-scripts/scrape/internal/config"
	"github.com/go-scripts/scrape/internal/crawl"
	"github.com/go-scripts/scrape/internal/metrics"
)

// Error messages returned to clients.
const (
	msgURLRequired      = "URL is required"
	msgNavigationFailed = "Failed to navigate to the URL"
	msgInternal         = "Internal Server Error"
)

// Crawler is the part of crawl.Crawler the server needs.
type Crawler interface {
	Crawl(ctx context.Context, entryURL string) (*crawl.Result, error)
}

// Server serves POST /scrape.
type Server struct {
	cfg     config.Config
	crawler Crawler
}

// New returns a Server that runs every scrape through c.
func New(cfg config.Config, c Crawler) *Server {
	return &Server{cfg: cfg, crawler: c}
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the full HTTP handler including CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scrape", s.handleScrape)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.cfg.MetricsPath != "" {
		mux.Handle("GET "+s.cfg.MetricsPath, promhttp.Handler())
	}

	return logRequests(cors.AllowAll().Handler(mux))
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.ScrapeDuration.Observe(time.Since(start).Seconds())
	}()

	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug("Decoding scrape request", "err", err)
		req.URL = ""
	}
	if req.URL == "" {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgURLRequired})
		return
	}

	res, err := s.crawler.Crawl(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, crawl.ErrEntryNavigation) {
			log.Error("Navigation error", "url", req.URL, "err", err)
			metrics.RequestsTotal.WithLabelValues(metrics.OutcomeEntryError).Inc()
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgNavigationFailed})
			return
		}
		log.Error("Internal Server Error", "url", req.URL, "err", err)
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeInternal).Inc()
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	payload, err := res.Payload()
	if err != nil {
		log.Error("Internal Server Error", "url", req.URL, "err", err)
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeInternal).Inc()
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	metrics.RequestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Warn("Writing response", "err", err)
	}
}

// Run listens on the configured port until ctx is done, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server is running", "port", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
