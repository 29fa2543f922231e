package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
)

// Server is the per-worker health and metrics listener.
type Server struct {
	collector *Collector
	cfg       common.MonitorConfig
	logger    arbor.ILogger
	server    *http.Server
}

// NewServer wires the health and metrics routes around the collector.
func NewServer(collector *Collector, cfg common.MonitorConfig, logger arbor.ILogger) *Server {
	s := &Server{
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}

	port := cfg.Port
	if port <= 0 {
		port = 9090
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start runs the listener until Shutdown. A closed server is a normal stop.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.server.Addr).Msg("Monitor listener starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("monitor listener failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) staleThreshold() time.Duration {
	if s.cfg.StaleThreshold > 0 {
		return s.cfg.StaleThreshold
	}
	return 24 * time.Hour
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, healthy := s.collector.Health(s.staleThreshold())

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"worker":  s.collector.Snapshot().Worker,
		"version": common.GetVersion(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.collector.Snapshot())
}
