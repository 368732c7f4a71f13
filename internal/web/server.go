// Package web exposes the bot's HTTP surface: a health probe and the
// /run-audit trigger used by external schedulers (cron, Cloud Scheduler).
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/logger"
	"github.com/fuggle07/paper-trader/internal/scheduler"
	"github.com/fuggle07/paper-trader/internal/storage"
)

type Server struct {
	http  *http.Server
	sched *scheduler.Scheduler
	repo  *storage.Repository
	log   *logger.Logger
}

func NewServer(cfg *config.Config, sched *scheduler.Scheduler, repo *storage.Repository, log *logger.Logger) *Server {
	s := &Server{sched: sched, repo: repo, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/run-audit", s.handleRunAudit)
	mux.HandleFunc("/performance", s.handlePerformance)

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute, // a forced audit over a long watchlist is slow
	}
	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("web server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRunAudit triggers a forced audit cycle and returns its full result.
// Partial failures (sick tickers, rejected orders) still come back as 200;
// only a cycle that could not run at all is a 500.
func (s *Server) handleRunAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	s.log.Info("forced audit requested", "remote", r.RemoteAddr)
	result, err := s.sched.RunCycle(r.Context(), true)
	if err != nil {
		s.log.Error("forced audit aborted", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePerformance serves the most recent end-of-cycle equity snapshot.
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	snap, err := s.repo.LatestSnapshot()
	if storage.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no cycles recorded yet"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
