package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/river-berlin/unibase"
	"github.com/river-berlin/unibase/internal/logging"
	"github.com/river-berlin/unibase/pkg/domain"
	"github.com/river-berlin/unibase/pkg/registry"
	"github.com/river-berlin/unibase/pkg/scad"
)

// DefaultMaxBodySize bounds SCAD uploads and prompt bodies.
const DefaultMaxBodySize = 1 << 20

// Engine is the part of unibase.Engine the API needs.
type Engine interface {
	Prompt(ctx context.Context, projectID string, req unibase.PromptRequest) (*unibase.Result, error)
	Project(ctx context.Context, projectID string) (*domain.Project, error)
	Render(ctx context.Context, scad string) (string, error)
	Tools() []domain.Tool
}

// Server holds the handlers.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics http.Handler
	maxBody int64
	logger  *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams shares a StreamManager, typically the one also registered as
// an engine publisher.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		maxBody: DefaultMaxBodySize,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/tools", s.ListTools)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Get("/", s.GetProject)
		r.Post("/prompt", s.Prompt)
		r.Get("/mesh", s.GetMesh)
		r.Get("/events", s.SubscribeEvents)
	})

	r.Post("/scad/parse", s.ParseSCAD)
	r.Post("/scad/render", s.RenderSCAD)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "unibase-http",
		"version": strings.TrimSpace(unibase.Version),
	})
}

type toolResponse struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ListTools handles GET /tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.Engine.Tools()
	resp := make([]toolResponse, 0, len(tools))
	for _, t := range tools {
		resp = append(resp, toolResponse{Name: t.Name, Description: t.Description, Parameters: registry.SchemaJSON(t)})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// Prompt handles POST /projects/{projectID}/prompt.
func (s *Server) Prompt(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var body unibase.PromptRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Prompt: Invalid request body", "error", err)
		return
	}

	res, err := s.Engine.Prompt(r.Context(), projectID, body)
	if err != nil {
		s.fail(w, "Prompt", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// GetProject handles GET /projects/{projectID}.
func (s *Server) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.Engine.Project(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, "GetProject", err)
		return
	}
	s.writeJSON(w, http.StatusOK, project)
}

// GetMesh handles GET /projects/{projectID}/mesh.
func (s *Server) GetMesh(w http.ResponseWriter, r *http.Request) {
	project, err := s.Engine.Project(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, "GetMesh", err)
		return
	}
	if project.STL == "" {
		http.Error(w, "Mesh not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "model/stl")
	_, _ = io.WriteString(w, project.STL)
}

// ParseSCAD handles POST /scad/parse. The body is SCAD text; the response is
// the scene as JSON.
func (s *Server) ParseSCAD(w http.ResponseWriter, r *http.Request) {
	text, ok := s.readText(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, scad.ParseAll(text))
}

// RenderSCAD handles POST /scad/render.
func (s *Server) RenderSCAD(w http.ResponseWriter, r *http.Request) {
	text, ok := s.readText(w, r)
	if !ok {
		return
	}
	stl, err := s.Engine.Render(r.Context(), text)
	if err != nil {
		http.Error(w, fmt.Sprintf("Render error: %v", err), http.StatusUnprocessableEntity)
		s.logger.Warn("Render failed", "error", err)
		return
	}
	w.Header().Set("Content-Type", "model/stl")
	_, _ = io.WriteString(w, stl)
}

func (s *Server) readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusRequestEntityTooLarge)
		return "", false
	}
	return string(data), true
}

// fail maps engine errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInstructionTooLarge),
		errors.Is(err, domain.ErrInvalidUTF8),
		errors.Is(err, domain.ErrEmptyInstruction):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}
