package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/roadside-admin/internal/audit"
	"github.com/baechuer/roadside-admin/internal/downstream"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/internal/session"
	"github.com/baechuer/roadside-admin/middleware"
)

type LoginClient interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type AuthHandler struct {
	client    LoginClient
	tokens    session.TokenStore
	sessions  *session.Registry
	audit     *audit.Logger
	jwtSecret string
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthHandler(client LoginClient, tokens session.TokenStore, sessions *session.Registry, auditor *audit.Logger, jwtSecret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{
		client:    client,
		tokens:    tokens,
		sessions:  sessions,
		audit:     auditor,
		jwtSecret: jwtSecret,
		ttl:       ttl,
		now:       time.Now,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	upstreamToken, err := h.client.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, downstream.ErrUnauthorized) {
			sendError(w, r, "invalid_credentials", "invalid username or password", http.StatusUnauthorized)
			return
		}
		handleDownstreamError(w, r, err, "sign in failed")
		return
	}

	sid := uuid.NewString()
	if err := h.tokens.Put(ctx, sid, upstreamToken, h.ttl); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("session_token_store_failed")
		sendError(w, r, "internal_error", "could not start session", http.StatusInternalServerError)
		return
	}

	now := h.now()
	token, err := middleware.IssueToken(h.jwtSecret, req.Username, sid, h.ttl, now)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("session_token_sign_failed")
		sendError(w, r, "internal_error", "could not start session", http.StatusInternalServerError)
		return
	}

	h.audit.SessionStarted(ctx, req.Username, sid)
	sendJSON(w, r, http.StatusOK, loginResponse{Token: token, ExpiresAt: now.Add(h.ttl).UTC()})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.GetSessionID(ctx)
	if sid != "" {
		if err := h.tokens.Delete(ctx, sid); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("session_token_delete_failed")
		}
		h.sessions.Drop(sid)
		h.audit.SessionEnded(ctx, middleware.GetAdmin(ctx), sid)
	}
	w.WriteHeader(http.StatusNoContent)
}
