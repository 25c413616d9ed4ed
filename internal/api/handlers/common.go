package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/baechuer/roadside-admin/internal/domain"
	"github.com/baechuer/roadside-admin/internal/downstream"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/middleware"
)

var validate = validator.New()

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	resp := domain.APIError{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = middleware.GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func sendJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		sendError(w, r, "validation_failed", "invalid body", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		sendError(w, r, "validation_failed", "Please fill in all required fields", http.StatusBadRequest)
		return false
	}
	return true
}

func handleDownstreamError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	logger.Ctx(r.Context()).Warn().Err(err).Msg("downstream_call_failed")

	var se *downstream.StatusError
	switch {
	case errors.Is(err, downstream.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		sendError(w, r, "upstream_timeout", defaultMsg, http.StatusGatewayTimeout)
	case errors.Is(err, downstream.ErrUnavailable):
		sendError(w, r, "upstream_unavailable", defaultMsg, http.StatusBadGateway)
	case errors.Is(err, downstream.ErrBadPayload):
		sendError(w, r, "upstream_bad_payload", defaultMsg, http.StatusBadGateway)
	case errors.Is(err, downstream.ErrUnauthorized):
		sendError(w, r, "upstream_unauthorized", "directory session expired, sign in again", http.StatusUnauthorized)
	case errors.Is(err, downstream.ErrNotFound):
		sendError(w, r, "not_found", defaultMsg, http.StatusNotFound)
	case errors.As(err, &se):
		sendError(w, r, "upstream_error", se.Message, http.StatusBadGateway)
	default:
		sendError(w, r, "internal_error", defaultMsg, http.StatusBadGateway)
	}
}
