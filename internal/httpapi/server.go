// Package httpapi exposes a decision layer over HTTP/JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/layer"
	"github.com/danielpatrickdp/feedback-layer/internal/render"
)

const maxBodyBytes = 1 << 20

// Error codes returned in ErrorResponse.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// #region types
// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// SnapshotResponse is the body of GET /v1/snapshot.
type SnapshotResponse struct {
	Modes   []string            `json:"modes"`
	Entries []association.Entry `json:"entries"`
}

// #endregion types

// #region server
// Server serves one layer.
type Server struct {
	layer    *layer.Layer
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// New builds a server. A nil gatherer disables /metrics.
func New(l *layer.Layer, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{layer: l, gatherer: gatherer, logger: logger}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Post("/decide", s.handleDecide)
		r.Post("/feedback", s.handleFeedback)
		r.Post("/reset", s.handleReset)
	})
	return r
}

// #endregion server

// #region handlers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSnapshot returns the association table; ?format=text renders the
// flat "mode|token: value" listing.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	entries := s.layer.Snapshot()
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, render.Flat(entries))
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Modes: s.layer.Modes(), Entries: entries})
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req layer.DecideRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, err := s.layer.Decide(req)
	if err != nil {
		s.writeLayerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req layer.FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.layer.Feedback(req)
	if err != nil {
		s.writeLayerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.layer.Reset()
	writeJSON(w, http.StatusOK, SnapshotResponse{Modes: s.layer.Modes(), Entries: s.layer.Snapshot()})
}

// #endregion handlers

// #region helpers
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: "+err.Error(), middleware.GetReqID(r.Context()))
		return false
	}
	return true
}

func (s *Server) writeLayerError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())
	switch {
	case errors.Is(err, layer.ErrUnknownMode),
		errors.Is(err, layer.ErrInvalidWeight),
		errors.Is(err, layer.ErrInvalidReward),
		errors.Is(err, layer.ErrInvalidLearningRate):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeInvalidInput, err.Error(), reqID)
	default:
		s.logger.Error("layer call failed", "path", r.URL.Path, "request_id", reqID, "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), reqID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Code: ErrCodeInternal, Message: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code, msg, reqID string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg, RequestID: reqID})
}

// #endregion helpers
