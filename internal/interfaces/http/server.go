// Package http exposes the read-only monitoring surface: health, metrics
// and the per-date signal classifications.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sawpanic/derivscan/internal/persistence"
)

// Config holds the listener settings. Local-only by default: this surface
// carries no authentication.
type Config struct {
	Host         string        `yaml:"host" default:"127.0.0.1"`
	Port         int           `yaml:"port" default:"8087"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
}

// Pinger reports storage connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the monitoring HTTP server.
type Server struct {
	server          *http.Server
	classifications persistence.ClassificationStore
	pinger          Pinger
	log             zerolog.Logger
}

// NewServer builds the server and its routes.
func NewServer(cfg Config, classifications persistence.ClassificationStore, pinger Pinger, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	s := &Server{
		classifications: classifications,
		pinger:          pinger,
		log:             log.With().Str("component", "http").Logger(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/signals/{date}", s.handleSignals).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("monitor server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.pinger.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		s.log.Warn().Err(err).Msg("health check failed")
	}
	writeJSON(w, code, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["date"]
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid date %q, want YYYY-MM-DD", raw),
		})
		return
	}

	rows, err := s.classifications.ByDate(r.Context(), date)
	if err != nil {
		s.log.Error().Err(err).Str("date", raw).Msg("signals query failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "data not yet available for this date",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":    raw,
		"count":   len(rows),
		"signals": rows,
	})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
