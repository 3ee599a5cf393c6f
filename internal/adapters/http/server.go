// Package http exposes the workflow engine over a JSON API. It is a thin
// adapter: requests map to engine calls, typed result codes map to status
// codes, and nothing here holds state of its own.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/pledge/internal/logging"
	"github.com/aretw0/pledge/pkg/domain"
)

// Engine is the workflow surface the API serves.
type Engine interface {
	Propose(ctx context.Context, initiatorID, responderID string, kind domain.Kind, payload map[string]any, ttl time.Duration) (*domain.Result, error)
	Respond(ctx context.Context, responderID, initiatorID string, decision domain.Decision) (*domain.Result, error)
	Cancel(ctx context.Context, initiatorID, responderID string) (*domain.Result, error)
	Pending(ctx context.Context, responderID string) (*domain.Proposal, error)
	Get(ctx context.Context, id string) (*domain.Proposal, error)
}

// Server routes API requests to the engine.
type Server struct {
	engine Engine
	logger *slog.Logger
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler builds the API handler. Extra handlers (e.g. a metrics
// endpoint) can be mounted by the caller on the returned router.
func NewHandler(engine Engine, opts ...ServerOption) *chi.Mux {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/proposals", s.propose)
		r.Post("/proposals/respond", s.respond)
		r.Post("/proposals/cancel", s.cancel)
		r.Get("/proposals/{id}", s.get)
		r.Get("/responders/{id}/pending", s.pending)
	})
	return r
}

type proposeRequest struct {
	InitiatorID string         `json:"initiator_id"`
	ResponderID string         `json:"responder_id"`
	Kind        string         `json:"kind"`
	Payload     map[string]any `json:"payload,omitempty"`
	TTLSeconds  int64          `json:"ttl_seconds"`
}

type respondRequest struct {
	ResponderID string `json:"responder_id"`
	InitiatorID string `json:"initiator_id"`
	Decision    string `json:"decision"`
}

type cancelRequest struct {
	InitiatorID string `json:"initiator_id"`
	ResponderID string `json:"responder_id"`
}

type resultResponse struct {
	Code     domain.ResultCode `json:"code"`
	Proposal *domain.Proposal  `json:"proposal,omitempty"`
	ApplyErr string            `json:"apply_error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) propose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.engine.Propose(r.Context(),
		req.InitiatorID, req.ResponderID,
		domain.Kind(req.Kind), req.Payload,
		time.Duration(req.TTLSeconds)*time.Second,
	)
	if err != nil {
		if isValidationErr(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, "propose", err)
		return
	}
	s.writeResult(w, res, http.StatusCreated)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	decision := domain.Decision(req.Decision)
	if decision != domain.DecisionAccept && decision != domain.DecisionReject {
		s.writeError(w, http.StatusBadRequest, "decision must be accept or reject")
		return
	}

	res, err := s.engine.Respond(r.Context(), req.ResponderID, req.InitiatorID, decision)
	if err != nil {
		s.internalError(w, "respond", err)
		return
	}
	s.writeResult(w, res, http.StatusOK)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.engine.Cancel(r.Context(), req.InitiatorID, req.ResponderID)
	if err != nil {
		s.internalError(w, "cancel", err)
		return
	}
	s.writeResult(w, res, http.StatusOK)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "proposal not found")
			return
		}
		s.internalError(w, "get", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Pending(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no pending proposal")
			return
		}
		s.internalError(w, "pending", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeResult maps a typed result to a status code. okStatus is used for the
// codes that mean the call took effect (201 for propose, 200 elsewhere).
func (s *Server) writeResult(w http.ResponseWriter, res *domain.Result, okStatus int) {
	status := okStatus
	switch res.Code {
	case domain.ResultAlreadyPending, domain.ResultAlreadyResolved:
		status = http.StatusConflict
	case domain.ResultExpired:
		status = http.StatusGone
	case domain.ResultNotFound:
		status = http.StatusNotFound
	case domain.ResultApplyFailed:
		status = http.StatusBadGateway
	}

	body := resultResponse{Code: res.Code, Proposal: res.Proposal}
	if res.ApplyErr != nil {
		body.ApplyErr = res.ApplyErr.Error()
	}
	s.writeJSON(w, status, body)
}

func isValidationErr(err error) bool {
	return errors.Is(err, domain.ErrSelfProposal) ||
		errors.Is(err, domain.ErrInvalidTTL) ||
		errors.Is(err, domain.ErrUnknownKind)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", "op", op, "err", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
