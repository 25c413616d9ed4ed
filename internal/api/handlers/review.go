package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/baechuer/roadside-admin/internal/domain"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/internal/review"
	"github.com/baechuer/roadside-admin/internal/session"
	"github.com/baechuer/roadside-admin/middleware"
)

type ReviewHandler struct {
	sessions  *session.Registry
	decisions review.DecisionLog
}

func NewReviewHandler(sessions *session.Registry, decisions review.DecisionLog) *ReviewHandler {
	if decisions == nil {
		decisions = review.NopDecisionLog{}
	}
	return &ReviewHandler{sessions: sessions, decisions: decisions}
}

type openRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required"`
}

type decisionResponse struct {
	User  domain.User     `json:"user"`
	State review.Snapshot `json:"state"`
}

func (h *ReviewHandler) workflow(r *http.Request) *review.Workflow {
	return h.sessions.Get(middleware.GetSessionID(r.Context())).Workflow
}

func (h *ReviewHandler) State(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, r, http.StatusOK, h.workflow(r).Current())
}

func (h *ReviewHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	snap, err := h.workflow(r).Open(r.Context(), req.Email)
	if err != nil {
		h.sendWorkflowError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, snap)
}

func (h *ReviewHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	decision, err := domain.ParseDecision(req.Decision)
	if err != nil {
		sendError(w, r, "validation_failed", "decision must be approved or rejected", http.StatusBadRequest)
		return
	}

	wf := h.workflow(r)
	user, err := wf.Decide(r.Context(), decision)
	if err != nil {
		h.sendWorkflowError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, decisionResponse{User: user, State: wf.Current()})
}

func (h *ReviewHandler) Close(w http.ResponseWriter, r *http.Request) {
	wf := h.workflow(r)
	if err := wf.Close(); err != nil {
		h.sendWorkflowError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, wf.Current())
}

func (h *ReviewHandler) History(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		sendError(w, r, "validation_failed", "email is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			sendError(w, r, "validation_failed", "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.decisions.ListByEmail(r.Context(), email, limit)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Str("email", email).Msg("decision_log_read_failed")
		sendError(w, r, "internal_error", "failed to load review history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []review.Entry{}
	}
	sendJSON(w, r, http.StatusOK, map[string]any{"data": entries})
}

func (h *ReviewHandler) sendWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, review.ErrNoSelection):
		sendError(w, r, "not_found", "no user with that email in the current list", http.StatusNotFound)
	case errors.Is(err, review.ErrInvalidTransition):
		sendError(w, r, "invalid_state", "review is not in a state that allows this", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidDecision):
		sendError(w, r, "validation_failed", "decision must be approved or rejected", http.StatusBadRequest)
	default:
		handleDownstreamError(w, r, err, "failed to update license status")
	}
}
