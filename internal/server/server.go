// Package server exposes the intake wizard over HTTP. Each session owns
// one wizard controller, created on first use and dropped once the session
// is logged out, expired or gone from the store.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"internship-intake/internal/common/config"
	"internship-intake/internal/common/errors"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/intake/session"
	"internship-intake/internal/intake/submission"
	"internship-intake/internal/intake/wizard"
)

// Redriver schedules a background retry of a failed submission. It is
// satisfied by *camunda.Client.
type Redriver interface {
	StartProcess(ctx context.Context, bpmnProcessID string, vars interface{}) (int64, error)
}

type Options struct {
	Config    config.ServerConfig
	Sessions  *session.Manager
	Wizard    wizard.Dependencies
	Captcha   wizard.Config
	Redriver  Redriver
	// Snapshots parks failed submissions for the re-drive worker. Required
	// when Redriver is set.
	Snapshots submission.SnapshotStore
	Logger    logger.Logger
}

type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	sessions   *session.Manager
	deps       wizard.Dependencies
	wizardCfg  wizard.Config
	redriver   Redriver
	snapshots  submission.SnapshotStore
	logger     logger.Logger

	mu      sync.Mutex
	wizards map[string]*wizard.Controller
}

func New(opts Options) (*Server, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("server requires a session manager")
	}
	if opts.Wizard.Submitter == nil || opts.Wizard.Catalog == nil {
		return nil, fmt.Errorf("server requires a submitter and a catalog")
	}
	if opts.Redriver != nil && opts.Snapshots == nil {
		return nil, fmt.Errorf("server re-drive requires a snapshot store")
	}

	s := &Server{
		cfg:       opts.Config,
		sessions:  opts.Sessions,
		deps:      opts.Wizard,
		wizardCfg: opts.Captcha,
		redriver:  opts.Redriver,
		snapshots: opts.Snapshots,
		logger:    logger.ForComponent(opts.Logger, "server"),
		wizards:   make(map[string]*wizard.Controller),
	}

	s.httpServer = &http.Server{
		Addr:         opts.Config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  config.GetDuration(opts.Config.ReadTimeout),
		WriteTimeout: config.GetDuration(opts.Config.WriteTimeout),
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /sessions", s.handleLogin)
	mux.HandleFunc("DELETE /sessions/{session_id}", s.handleLogout)

	// Wizard navigation
	mux.HandleFunc("GET /sessions/{session_id}/wizard", s.handleState)
	mux.HandleFunc("POST /sessions/{session_id}/wizard/advance", s.handleAdvance)
	mux.HandleFunc("POST /sessions/{session_id}/wizard/retreat", s.handleRetreat)
	mux.HandleFunc("POST /sessions/{session_id}/wizard/submit", s.handleSubmit)

	// Identity step
	mux.HandleFunc("PUT /sessions/{session_id}/identity", s.handleSetIdentifier)
	mux.HandleFunc("GET /sessions/{session_id}/identity/captcha", s.handleCaptcha)
	mux.HandleFunc("POST /sessions/{session_id}/identity/captcha/refresh", s.handleRefreshCaptcha)
	mux.HandleFunc("POST /sessions/{session_id}/identity/captcha/solve", s.handleSolveCaptcha)
	mux.HandleFunc("POST /sessions/{session_id}/identity/otp", s.handleSendOTP)
	mux.HandleFunc("POST /sessions/{session_id}/identity/otp/verify", s.handleVerifyOTP)

	// Personal step
	mux.HandleFunc("PUT /sessions/{session_id}/personal", s.handleUpdatePersonal)
	mux.HandleFunc("PUT /sessions/{session_id}/personal/income-certificate", s.handleIncomeCertificate)

	// Résumé step
	mux.HandleFunc("PUT /sessions/{session_id}/resume", s.handleAttachResume)
	mux.HandleFunc("PUT /sessions/{session_id}/resume/skills", s.handleSetSkills)
	mux.HandleFunc("PUT /sessions/{session_id}/resume/education/{level}", s.handleUpdateEducation)
	mux.HandleFunc("PUT /sessions/{session_id}/resume/education/{level}/marksheet", s.handleAttachMarksheet)

	// Preference step
	mux.HandleFunc("PUT /sessions/{session_id}/preferences/{slot}/{field}", s.handleSetPreference)
	mux.HandleFunc("DELETE /sessions/{session_id}/preferences/{slot}", s.handleClearSlot)
	mux.HandleFunc("GET /sessions/{session_id}/preferences/{slot}/locations", s.handleSelectableLocations)

	// Catalog lookups
	mux.HandleFunc("GET /catalog/categories", s.handleCategories)
	mux.HandleFunc("GET /catalog/roles", s.handleRoles)
	mux.HandleFunc("GET /catalog/locations", s.handleLocations)

	return s.withLogging(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", map[string]interface{}{"address": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// wizard resolves the request's session and returns its controller,
// creating one on first use.
func (s *Server) wizard(r *http.Request) (*wizard.Controller, error) {
	id := r.PathValue("session_id")
	sc, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeSessionExpired) || errors.HasCode(err, errors.ErrCodeSessionNotFound) {
			s.drop(id)
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.wizards[id]; ok {
		return c, nil
	}
	c, err := wizard.New(sc, s.deps, s.wizardCfg, s.logger)
	if err != nil {
		return nil, err
	}
	s.wizards[id] = c
	return c, nil
}

func (s *Server) drop(sessionID string) {
	s.mu.Lock()
	delete(s.wizards, sessionID)
	s.mu.Unlock()
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request completed", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}
