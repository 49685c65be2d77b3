// Package server exposes the planning backend over HTTP: POST /plan,
// GET /health and GET /providers. It is the same contract the resilient
// client speaks, served by the in-process planners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zentab/tabagent/api/schemas"
	"github.com/zentab/tabagent/internal/config"
	"github.com/zentab/tabagent/internal/planner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is the planning backend.
type Server struct {
	cfg     config.ServerConfig
	version string
	logger  *zap.Logger
	httpSrv *http.Server
}

// New builds the server; version is reported by /health.
func New(cfg config.ServerConfig, version string, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		version: version,
		logger:  logger.Named("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /plan", s.handlePlan)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /providers", s.handleProviders)

	s.httpSrv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("planning server listening",
			zap.String("addr", s.cfg.ListenAddr),
			zap.String("default_provider", s.cfg.DefaultProvider))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("planning server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Handler exposes the mux for httptest-driven tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req schemas.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid plan request: %v", err))
		return
	}
	if req.UserRequest == "" {
		writeError(w, http.StatusUnprocessableEntity, "userRequest is required")
		return
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = s.cfg.DefaultProvider
	}

	p, err := planner.New(providerName, s.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := p.Plan(r.Context(), req)
	if err != nil || resp.Error != "" {
		reason := resp.Error
		if err != nil {
			reason = err.Error()
		}
		resp = s.fallbackPlan(r.Context(), req, providerName, reason)
	}

	writeJSON(w, http.StatusOK, resp)
}

// fallbackPlan degrades to the rule-based planner when a provider fails,
// mirroring the graceful-degradation contract: a usable fallback plan gets
// a "[Fallback]" summary prefix, an unusable one explains the outage.
func (s *Server) fallbackPlan(ctx context.Context, req schemas.PlanRequest, provider, reason string) schemas.PlanResponse {
	if provider == "rule_based" {
		return schemas.PlanResponse{
			Summary: "Planning failed.",
			Steps:   []schemas.Step{},
			Error:   reason,
		}
	}

	s.logger.Warn("provider failed, falling back to rule_based",
		zap.String("provider", provider), zap.String("reason", reason))

	fallback, err := planner.New("rule_based", s.logger)
	if err != nil {
		return schemas.PlanResponse{
			Summary: fmt.Sprintf("All planners failed. Original error: %s", reason),
			Steps:   []schemas.Step{},
			Error:   err.Error(),
		}
	}

	resp, err := fallback.Plan(ctx, req)
	if err != nil {
		return schemas.PlanResponse{
			Summary: fmt.Sprintf("All planners failed. Original error: %s", reason),
			Steps:   []schemas.Step{},
			Error:   err.Error(),
		}
	}

	if len(resp.Steps) > 0 {
		resp.Summary = "[Fallback] " + resp.Summary
	} else {
		resp.Summary = fmt.Sprintf(
			"AI provider unavailable (%s). Try: 'search <term>', 'click <button text>', or 'scroll down'.",
			reason)
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": planner.Providers(),
		"default":   s.cfg.DefaultProvider,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
