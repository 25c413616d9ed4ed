package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/roadside-admin/internal/domain"
	"github.com/baechuer/roadside-admin/internal/logger"
)

type RawUserSource interface {
	FetchRawUsers(ctx context.Context) ([]domain.RawUser, error)
}

type OverviewHandler struct {
	source RawUserSource
	now    func() time.Time
}

func NewOverviewHandler(source RawUserSource) *OverviewHandler {
	return &OverviewHandler{source: source, now: time.Now}
}

// Get reports the dashboard KPIs. A failed fetch is shown as an offline
// directory with zero values, not as an error.
func (h *OverviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	raws, err := h.source.FetchRawUsers(r.Context())
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("overview_directory_offline")
		sendJSON(w, r, http.StatusOK, domain.OfflineOverview())
		return
	}
	sendJSON(w, r, http.StatusOK, domain.BuildOverview(raws, h.now()))
}
