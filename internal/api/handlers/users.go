package handlers

import (
	"errors"
	"net/http"

	"github.com/baechuer/roadside-admin/internal/directory"
	"github.com/baechuer/roadside-admin/internal/domain"
	"github.com/baechuer/roadside-admin/internal/session"
	"github.com/baechuer/roadside-admin/middleware"
)

type UsersHandler struct {
	sessions *session.Registry
}

func NewUsersHandler(sessions *session.Registry) *UsersHandler {
	return &UsersHandler{sessions: sessions}
}

type usersPayload struct {
	Data struct {
		Users []domain.User `json:"users"`
		Count int           `json:"count"`
	} `json:"data"`
}

func newUsersPayload(users []domain.User) usersPayload {
	var p usersPayload
	if users == nil {
		users = []domain.User{}
	}
	p.Data.Users = users
	p.Data.Count = len(users)
	return p
}

// List refreshes the reviewer's record set, filtered by ?q= when present.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	ws := h.sessions.Get(middleware.GetSessionID(r.Context()))

	users, err := ws.View.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if errors.Is(err, directory.ErrSuperseded) {
			sendError(w, r, "superseded", "a newer search replaced this one", http.StatusConflict)
			return
		}
		handleDownstreamError(w, r, err, "failed to load users")
		return
	}
	sendJSON(w, r, http.StatusOK, newUsersPayload(users))
}

// Snapshot returns the current record set without contacting the directory.
func (h *UsersHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ws := h.sessions.Get(middleware.GetSessionID(r.Context()))
	sendJSON(w, r, http.StatusOK, newUsersPayload(ws.View.Users()))
}
