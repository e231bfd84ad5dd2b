// Package server exposes the scheduling pipeline over HTTP. Each submitted
// problem is run once and its result stored under a generated id.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joshharrison/hlsched/internal/graph"
	"github.com/joshharrison/hlsched/internal/input"
	"github.com/joshharrison/hlsched/internal/listsched"
	"github.com/joshharrison/hlsched/internal/oplib"
	"github.com/joshharrison/hlsched/internal/pipeline"
	"github.com/joshharrison/hlsched/internal/state"
)

const (
	// MaxBodyBytes caps the size of a submitted problem.
	MaxBodyBytes = 8 << 20
	// DefaultMaxCycles bounds the scheduler when the config leaves
	// MaxCycles at zero.
	DefaultMaxCycles = 1 << 20
)

// Server runs submitted problems and keeps their results.
type Server struct {
	store  *state.Store
	cfg    pipeline.Config
	logger *zap.Logger
}

// New creates a Server that runs every submission with cfg and keeps the
// results in store. A nil store keeps them in memory. A zero cfg.MaxCycles
// is replaced by DefaultMaxCycles.
func New(cfg pipeline.Config, store *state.Store) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store, _ = state.Open("")
	}
	cfg.SkipSchedule = false
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = DefaultMaxCycles
	}
	return &Server{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Post("/schedules", s.handlePostSchedule)
	r.Get("/schedules", s.handleListSchedules)
	r.Get("/schedules/{id}", s.handleGetSchedule)
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (s *Server) handlePostSchedule(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
		} else {
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}

	p, err := input.ParseProblemJSON(body, "request")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := pipeline.Run(r.Context(), p, s.cfg)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	run := &state.Run{ID: uuid.New().String(), Result: res}
	if err := s.store.Add(run); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("schedule stored",
		zap.String("id", run.ID),
		zap.Int("nodes", res.TotalNodes),
		zap.Int("total_time", res.Schedule.TotalTime))
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"schedules": s.store.IDs()})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("schedule %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// statusFor maps pipeline errors to response codes: problems with the
// submitted graph or library are 422, anything else is 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrMalformedGraph),
		errors.Is(err, oplib.ErrUnknownOperator),
		errors.Is(err, oplib.ErrInvalidEntry),
		errors.Is(err, listsched.ErrSchedulingStalled):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
