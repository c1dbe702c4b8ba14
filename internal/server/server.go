// Package server exposes computed accessibility scores and the measure
// catalog over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/access-cli/internal/measure"
	"github.com/sells-group/access-cli/internal/store"
)

// Server wires the score store and measure registry into an HTTP handler.
type Server struct {
	store    store.Store
	registry *measure.Registry
}

// New builds a server over st and reg.
func New(st store.Store, reg *measure.Registry) *Server {
	return &Server{store: st, registry: reg}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/measures", s.handleMeasures)
		r.Get("/scores/{originID}", s.handleScores)
		r.Get("/runs/{runID}", s.handleRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type measureResponse struct {
	Name   string  `json:"name"`
	Family string  `json:"family"`
	Param  float64 `json:"param"`
	Cutoff float64 `json:"cutoff,omitempty"`
}

func (s *Server) handleMeasures(w http.ResponseWriter, r *http.Request) {
	measures := s.registry.Measures()
	out := make([]measureResponse, 0, len(measures))
	for _, m := range measures {
		out = append(out, measureResponse{
			Name:   m.Name,
			Family: string(m.Function.Family()),
			Param:  m.Function.Param(),
			Cutoff: m.Cutoff,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type scoresResponse struct {
	OriginID string             `json:"origin_id"`
	Scores   map[string]float64 `json:"scores"`
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	originID := chi.URLParam(r, "originID")

	scores, err := s.store.ScoresForOrigin(r.Context(), originID)
	if err != nil {
		zap.L().Error("scores lookup failed", zap.String("origin", originID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "scores lookup failed"})
		return
	}
	if len(scores) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scores for origin " + originID})
		return
	}
	writeJSON(w, http.StatusOK, scoresResponse{OriginID: originID, Scores: scores})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		zap.L().Error("run lookup failed", zap.String("run", runID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "run lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}
