// Package controlapi implements the optional Control API: a read/trigger
// HTTP surface over the daemon's most recent cycle report. It never runs
// planning itself.
package controlapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/cache"
	"github.com/formorer/ProxLB/internal/config"
	"github.com/formorer/ProxLB/internal/domain"
	"github.com/formorer/ProxLB/internal/token"
)

// ReportSource supplies the most recently completed cycle report. The
// daemon loop and the result cache both implement it; tests can fake it.
type ReportSource interface {
	LatestReport(ctx context.Context) (*domain.CycleReport, error)
}

// Server is the Control API's HTTP surface.
type Server struct {
	cfg        config.ControlAPIConfig
	logger     *zap.Logger
	httpServer *http.Server
	mux        *http.ServeMux
	reports    ReportSource
	events     *cache.Cache
	tokens     *token.Manager
	trigger    chan struct{}
}

// New builds a Control API server. trigger is a buffered channel that
// receives one value per accepted POST /trigger; the caller relays it to
// the daemon loop.
func New(cfg config.ControlAPIConfig, reports ReportSource, events *cache.Cache, trigger chan struct{}, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "control_api")),
		mux:     http.NewServeMux(),
		reports: reports,
		events:  events,
		tokens:  token.NewManager(cfg.JWTSecret),
		trigger: trigger,
	}

	s.registerRoutes()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.recoveryMiddleware(corsHandler.Handler(s.loggingMiddleware(s.mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/status", s.authenticate(s.handleStatus))
	s.mux.HandleFunc("/plan", s.authenticate(s.handlePlan))
	s.mux.HandleFunc("/trigger", s.authenticate(s.handleTrigger))
	s.mux.HandleFunc("/stream", s.authenticate(s.handleStream))
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control API listening", zap.String("addr", s.cfg.Listen))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("control API server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.LatestReport(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"started_at":         report.StartedAt,
		"finished_at":        report.FinishedAt,
		"dry_run":            report.DryRun,
		"migrations_planned": len(report.Plan),
		"warnings":           report.Warnings,
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.LatestReport(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, report.Plan)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	select {
	case s.trigger <- struct{}{}:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
	default:
		writeJSON(w, http.StatusConflict, map[string]string{"status": "trigger already queued"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
