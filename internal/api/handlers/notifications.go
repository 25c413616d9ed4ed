package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/baechuer/roadside-admin/internal/notify"
)

type NotificationSender interface {
	Send(ctx context.Context, req notify.Request) (notify.Notification, error)
	History() []notify.Notification
}

type NotificationsHandler struct {
	composer NotificationSender
}

func NewNotificationsHandler(composer NotificationSender) *NotificationsHandler {
	return &NotificationsHandler{composer: composer}
}

func (h *NotificationsHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req notify.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, "validation_failed", "invalid body", http.StatusBadRequest)
		return
	}

	n, err := h.composer.Send(r.Context(), req)
	switch {
	case errors.Is(err, notify.ErrValidation):
		sendError(w, r, "validation_failed", err.Error(), http.StatusBadRequest)
	case err != nil:
		sendError(w, r, "publish_failed", "notification could not be delivered", http.StatusBadGateway)
	default:
		sendJSON(w, r, http.StatusAccepted, n)
	}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, r, http.StatusOK, map[string]any{"data": h.composer.History()})
}
