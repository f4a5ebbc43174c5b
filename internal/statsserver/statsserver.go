// Package statsserver exposes a Viewer's live statistics over HTTP, the
// same shape as an HTTP tile server but serving JSON diagnostics instead
// of tile images.
package statsserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// StatsProvider is implemented by whatever the server reports on (the
// viewer). Kept minimal and decoupled so this package never imports the
// viewer package.
type StatsProvider interface {
	Statistics() any
}

// Server serves /stats and /health for a StatsProvider.
type Server struct {
	provider StatsProvider
	port     int
	logger   *zap.Logger
	server   *http.Server
}

// New builds a Server. If logger is nil, a no-op logger is used.
func New(provider StatsProvider, port int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{provider: provider, port: port, logger: logger}
}

// Start begins serving and blocks until the server stops (mirrors
// net/http.Server.ListenAndServe). Call in a goroutine; use Stop to shut
// down.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	s.logger.Info("stats server starting", zap.Int("port", s.port))
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.provider.Statistics()); err != nil {
		s.logger.Warn("failed to encode stats response", zap.Error(err))
		http.Error(w, "failed to encode stats", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
