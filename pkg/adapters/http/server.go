// Package http exposes the engine as a JSON API: model CRUD, the builder
// mutation surface, commits, and graph views. Routes are hand-written on
// chi; errors come back as {"error": {"kind", "message"}} with the kind
// mapped to a status code.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/espalier"
	mermaid "github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/builder"
	"github.com/aretw0/espalier/pkg/codec"
	"github.com/aretw0/espalier/pkg/domain"
)

// Server wires the engine into HTTP handlers.
type Server struct {
	engine  *espalier.Engine
	logger  *slog.Logger
	metrics http.Handler
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts a /metrics endpoint for the given registry.
func WithMetrics(reg *prometheus.Registry) ServerOption {
	return func(s *Server) {
		s.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine *espalier.Engine, opts ...ServerOption) http.Handler {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Get("/version", s.version)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/models", func(r chi.Router) {
		r.Get("/", s.listModels)
		r.Post("/", s.createModel)
		r.Route("/{modelID}", func(r chi.Router) {
			r.Get("/", s.getModel)
			r.Delete("/", s.deleteModel)
			r.Get("/graph", s.getGraph)
			r.Get("/mermaid", s.getMermaid)
			r.Post("/slices", s.addSlice)
			r.Post("/slices/{sliceID}/elements", s.addElement)
			r.Post("/slices/{sliceID}/specifications", s.addSpecification)
			r.Post("/slices/{sliceID}/commit", s.commitSlice)
			r.Post("/elements/{elementID}/dependencies", s.addDependency)
			r.Delete("/elements/{elementID}", s.removeElement)
			r.Post("/connections", s.connect)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": strings.TrimSpace(espalier.Version)})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": ids})
}

func (s *Server) createModel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}
	id, err := s.engine.Create(r.Context(), body.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Open(r.Context(), chi.URLParam(r, "modelID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := codec.Encode(b.Model())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) deleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Delete(r.Context(), chi.URLParam(r, "modelID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Open(r.Context(), chi.URLParam(r, "modelID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"adjacency": b.Adjacency()})
}

func (s *Server) getMermaid(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Open(r.Context(), chi.URLParam(r, "modelID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(mermaid.GenerateMermaid(b.Model())))
}

func (s *Server) addSlice(w http.ResponseWriter, r *http.Request) {
	var slice domain.Slice
	if err := decodeBody(r, &slice); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutateModel(w, r, func(b *builder.Builder) error {
		return b.AddSlice(slice)
	})
}

func (s *Server) addElement(w http.ResponseWriter, r *http.Request) {
	var el domain.Element
	if err := decodeBody(r, &el); err != nil {
		s.writeError(w, r, err)
		return
	}
	sliceID := chi.URLParam(r, "sliceID")
	s.mutateModel(w, r, func(b *builder.Builder) error {
		return b.AddElement(sliceID, el)
	})
}

func (s *Server) addSpecification(w http.ResponseWriter, r *http.Request) {
	var spec domain.Specification
	if err := decodeBody(r, &spec); err != nil {
		s.writeError(w, r, err)
		return
	}
	sliceID := chi.URLParam(r, "sliceID")
	s.mutateModel(w, r, func(b *builder.Builder) error {
		return b.AddSpecification(sliceID, spec)
	})
}

func (s *Server) addDependency(w http.ResponseWriter, r *http.Request) {
	var dep domain.Dependency
	if err := decodeBody(r, &dep); err != nil {
		s.writeError(w, r, err)
		return
	}
	elementID := chi.URLParam(r, "elementID")
	s.mutateModel(w, r, func(b *builder.Builder) error {
		return b.AddDependency(elementID, dep)
	})
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutateModel(w, r, func(b *builder.Builder) error {
		return b.Connect(body.From, body.To)
	})
}

func (s *Server) removeElement(w http.ResponseWriter, r *http.Request) {
	cascade := r.URL.Query().Get("cascade") == "true"
	elementID := chi.URLParam(r, "elementID")
	s.mutateModel(w, r, func(b *builder.Builder) error {
		return b.RemoveElement(elementID, cascade)
	})
}

func (s *Server) commitSlice(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	sliceID := chi.URLParam(r, "sliceID")

	b, err := s.engine.Open(r.Context(), modelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	warnings, err := b.CommitSlice(sliceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.Save(r.Context(), modelID, b); err != nil {
		s.writeError(w, r, err)
		return
	}
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
}

// mutateModel runs one builder mutation as a load-apply-save round trip.
func (s *Server) mutateModel(w http.ResponseWriter, r *http.Request, fn func(b *builder.Builder) error) {
	modelID := chi.URLParam(r, "modelID")

	b, err := s.engine.Open(r.Context(), modelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := fn(b); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.Save(r.Context(), modelID, b); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(r *http.Request, into any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return &domain.SchemaViolationError{Reason: "invalid request body: " + err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps the error taxonomy to status codes and emits the JSON
// error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	kind := domain.KindOf(err)

	switch {
	case errors.Is(err, domain.ErrModelNotFound):
		status = http.StatusNotFound
		kind = "MODEL_NOT_FOUND"
	case kind == domain.KindSchemaViolation:
		status = http.StatusBadRequest
	case kind == domain.KindDuplicateID:
		status = http.StatusConflict
	case kind == domain.KindUnknownReference:
		status = http.StatusNotFound
	case kind != "":
		status = http.StatusUnprocessableEntity
	}

	s.logger.Warn("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"kind", string(kind),
		"err", err,
	)
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"kind":    string(kind),
			"message": err.Error(),
		},
	})
}
