package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/roadside-admin/internal/domain"
)

// Entry is one accepted license decision.
type Entry struct {
	ID        uuid.UUID            `json:"id"`
	Email     string               `json:"email"`
	Decision  domain.Decision      `json:"decision"`
	Status    domain.LicenseStatus `json:"status"`
	Reviewer  string               `json:"reviewer"`
	DecidedAt time.Time            `json:"decided_at"`
}

// DecisionLog keeps the history of accepted decisions.
type DecisionLog interface {
	Record(ctx context.Context, e Entry) error
	ListByEmail(ctx context.Context, email string, limit int) ([]Entry, error)
}

// NopDecisionLog is used when no database is configured.
type NopDecisionLog struct{}

func (NopDecisionLog) Record(context.Context, Entry) error { return nil }

func (NopDecisionLog) ListByEmail(context.Context, string, int) ([]Entry, error) {
	return []Entry{}, nil
}
