// Package httpapi serves the jet selector over HTTP with JSON bodies.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danielpatrickdp/jetid/internal/cutflow"
	"github.com/danielpatrickdp/jetid/internal/jetid"
	"github.com/danielpatrickdp/jetid/internal/runner"
)

const maxBodyBytes = 32 << 20

// statusClientClosedRequest is the non-standard code nginx logs when the
// client goes away before the response.
const statusClientClosedRequest = 499

// #region server

// Server is the HTTP front end. Routes:
//
//	GET  /healthz
//	GET  /v1/cuts
//	GET  /v1/cutflow
//	POST /v1/select
type Server struct {
	router chi.Router
	server *http.Server
	runner *runner.Runner
	logger *slog.Logger
}

// NewServer builds the router and an http.Server listening on addr.
func NewServer(addr string, r *runner.Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{router: chi.NewRouter(), runner: r, logger: logger}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(v1 chi.Router) {
		v1.Get("/cuts", s.handleCuts)
		v1.Get("/cutflow", s.handleCutflow)
		v1.Post("/select", s.handleSelect)
	})

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens until Shutdown. A clean shutdown returns nil.
func (s *Server) Run() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// #endregion server

// #region handlers

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCuts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Describe())
}

type cutflowResponse struct {
	Jets     int           `json:"jets"`
	Selected int           `json:"selected"`
	Cutflow  []cutflow.Row `json:"cutflow"`
}

func (s *Server) handleCutflow(w http.ResponseWriter, _ *http.Request) {
	total, selected := s.runner.Totals()
	writeJSON(w, http.StatusOK, cutflowResponse{Jets: total, Selected: selected, Cutflow: s.runner.Cutflow()})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req runner.SelectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	if len(req.Jets) == 0 {
		writeError(w, http.StatusBadRequest, "no jets in request")
		return
	}

	res, err := s.runner.Run(r.Context(), req.Jets, runner.Options{Source: "http", Trigger: "http"})
	if err != nil {
		reqID := middleware.GetReqID(r.Context())
		switch {
		case r.Context().Err() != nil:
			s.logger.Info("select cancelled by client", "request_id", reqID, "err", err)
			writeError(w, statusClientClosedRequest, err.Error())
			return
		case errors.Is(err, jetid.ErrUnknownCorrection):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("select failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// #endregion handlers

// #region helpers

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// #endregion helpers
