// Package api provides the HTTP read API and the WebSocket streaming server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/metrics"
	"github.com/Adamant-im/currencyinfo/pkg/rates/history"
	"github.com/Adamant-im/currencyinfo/pkg/rates/updater"
	"github.com/Adamant-im/currencyinfo/pkg/version"
)

// Server is the HTTP read API server.
type Server struct {
	addr    string
	updater *updater.Updater
	logger  *logging.Logger
	server  *http.Server
}

// envelope is the uniform response wrapper.
type envelope struct {
	Success     bool   `json:"success"`
	Date        int64  `json:"date"`
	Result      any    `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
	LastUpdated *int64 `json:"last_updated"`
	Version     string `json:"version"`
}

// NewServer creates the read API server.
func NewServer(addr string, u *updater.Updater, logger *logging.Logger) *Server {
	return &Server{
		addr:    addr,
		updater: u,
		logger:  logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler builds the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/get", s.handleGet)
	mux.HandleFunc("/getHistory", s.handleGetHistory)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// handleGet serves the resolved snapshot, optionally filtered by coins and
// recomputed with an alternate rate lifetime.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest("/get", strconv.Itoa(status), time.Since(start))
	}()

	var coins []string
	if raw := r.URL.Query().Get("coin"); raw != "" {
		for _, coin := range strings.Split(raw, ",") {
			coin = strings.ToUpper(strings.TrimSpace(coin))
			if coin != "" {
				coins = append(coins, coin)
			}
		}
	}

	var rateLifetime int64
	if raw := r.URL.Query().Get("rateLifetime"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			status = http.StatusBadRequest
			s.sendError(w, status, "rateLifetime must be a positive integer")
			return
		}
		rateLifetime = parsed
	}

	s.sendResult(w, s.updater.GetTickers(coins, rateLifetime))
}

// handleGetHistory serves stored snapshots. from/to/timestamp are unix
// timestamps in seconds.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest("/getHistory", strconv.Itoa(status), time.Since(start))
	}()

	query := history.Query{Coin: strings.TrimSpace(r.URL.Query().Get("coin"))}

	for param, target := range map[string]*int64{
		"from":      &query.From,
		"to":        &query.To,
		"timestamp": &query.Timestamp,
	} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}

		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			status = http.StatusBadRequest
			s.sendError(w, status, fmt.Sprintf("%s must be a non-negative integer", param))
			return
		}

		*target = parsed * 1000
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			status = http.StatusBadRequest
			s.sendError(w, status, "limit must be a positive integer")
			return
		}
		query.Limit = parsed
	}

	snapshots, err := s.updater.GetHistory(r.Context(), query)
	if err != nil {
		if errors.Is(err, history.ErrInvalidRange) {
			status = http.StatusBadRequest
			s.sendError(w, status, err.Error())
			return
		}

		status = http.StatusInternalServerError
		s.logger.Error("History query failed", "error", err.Error())
		s.sendError(w, status, "Unable to query history")
		return
	}

	s.sendResult(w, snapshots)
}

// handleStatus reports schedule state.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/status", "200", time.Since(start))
	}()

	s.sendResult(w, s.updater.Status())
}

// handleHealth serves liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) sendResult(w http.ResponseWriter, result any) {
	s.sendJSON(w, http.StatusOK, envelope{
		Success:     true,
		Date:        time.Now().UnixMilli(),
		Result:      result,
		LastUpdated: s.lastUpdated(),
		Version:     version.Version,
	})
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, envelope{
		Success:     false,
		Date:        time.Now().UnixMilli(),
		Error:       message,
		LastUpdated: s.lastUpdated(),
		Version:     version.Version,
	})
}

// lastUpdated returns the last save time, or nil before the first save.
func (s *Server) lastUpdated() *int64 {
	if last := s.updater.LastUpdated(); last != 0 {
		return &last
	}
	return nil
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
