// Package httpapi serves the observability surface over the Sync
// Metrics store: GET /api/stats/sync and a live GET /ws/stats feed.
// It is the read-side counterpart to the Consumer Loop, adapted from
// the teacher's JSON-RPC server down to a plain REST+WS shape, since
// this daemon exposes one simple endpoint rather than a method-dispatch
// RPC surface.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/regiond/regiond/internal/sync"
	"github.com/regiond/regiond/pkg/logging"
)

// Server serves the observability HTTP/WS surface.
type Server struct {
	metrics *sync.Metrics
	log     *logging.Logger
	wsHub   *WSHub

	server   *http.Server
	listener net.Listener
}

// NewServer constructs an observability server backed by metrics.
func NewServer(metrics *sync.Metrics) *Server {
	return &Server{
		metrics: metrics,
		log:     logging.GetDefault().Component("httpapi"),
	}
}

// WSHub returns the WebSocket hub so the Consumer Loop can broadcast
// sync events as they are recorded.
func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

// Start binds addr and begins serving in the background.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.wsHub = NewWSHub()
	go s.wsHub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stats/sync", s.handleStats)
	mux.HandleFunc("OPTIONS /api/stats/sync", s.handleCORS)
	mux.HandleFunc("GET /ws/stats", s.handleWS)

	s.server = &http.Server{
		Handler:      corsMiddleware(requestIDMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("HTTP server stopped unexpectedly", "error", err)
		}
	}()

	s.log.Info("observability server listening", "addr", addr)
	return nil
}

// Stop shuts the server down within a bounded window.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleStats serves GET /api/stats/sync?direction=india-to-china.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	direction := r.URL.Query().Get("direction")
	if direction == "" {
		http.Error(w, "direction query parameter is required", http.StatusBadRequest)
		return
	}

	stats := s.metrics.Stats(direction)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.log.Error("failed to encode stats response", "error", err)
	}
}

func (s *Server) handleCORS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// corsMiddleware mirrors the teacher's CORS handling so the daemon's
// observability endpoint is embeddable behind the same frontend as the
// outward REST API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware stamps every response with a correlation ID,
// generated with google/uuid the way the teacher generates message and
// peer-session identifiers.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}
