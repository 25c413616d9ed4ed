// Package directory keeps the reviewer's view of the user directory in sync
// with the upstream.
package directory

import (
	"context"
	"errors"

	"github.com/baechuer/roadside-admin/internal/domain"
	"github.com/baechuer/roadside-admin/internal/logger"
)

// ErrSuperseded is returned when a newer refresh or search was issued while
// this one was in flight; its result was discarded.
var ErrSuperseded = errors.New("superseded")

// Source provides the directory collection.
type Source interface {
	FetchAllUsers(ctx context.Context) ([]domain.User, error)
	SearchUsers(ctx context.Context, query string) ([]domain.User, error)
}

// Enricher attaches license statuses to a batch of records.
type Enricher interface {
	Enrich(ctx context.Context, users []domain.User) []domain.User
}

type View struct {
	source   Source
	enricher Enricher
	store    *Store
}

func NewView(source Source, enricher Enricher) *View {
	return &View{
		source:   source,
		enricher: enricher,
		store:    NewStore(),
	}
}

// Refresh reloads the full collection.
func (v *View) Refresh(ctx context.Context) ([]domain.User, error) {
	return v.Search(ctx, "")
}

// Search runs one fetch/search/enrichment cycle and replaces the record set
// with its result. On a fetch error, or when ctx ends before enrichment
// completes, the previous set stays in place.
func (v *View) Search(ctx context.Context, query string) ([]domain.User, error) {
	token := v.store.Begin()

	var (
		users []domain.User
		err   error
	)
	if domain.NormalizeQuery(query) == "" {
		users, err = v.source.FetchAllUsers(ctx)
	} else {
		users, err = v.source.SearchUsers(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	users = v.enricher.Enrich(ctx, users)
	if err := ctx.Err(); err != nil {
		logger.Ctx(ctx).Debug().
			Uint64("token", token).
			Str("query", query).
			Msg("directory_cycle_abandoned")
		return nil, err
	}

	if !v.store.Commit(token, users) {
		logger.Ctx(ctx).Debug().
			Uint64("token", token).
			Str("query", query).
			Msg("directory_cycle_superseded")
		return nil, ErrSuperseded
	}
	return v.store.Snapshot(), nil
}

// Users returns the current record set.
func (v *View) Users() []domain.User {
	return v.store.Snapshot()
}

// Find looks a record up by email in the current set.
func (v *View) Find(email string) (domain.User, bool) {
	return v.store.Find(email)
}

// ApplyStatus patches the status of the records for email in place.
func (v *View) ApplyStatus(email string, status domain.LicenseStatus) int {
	return v.store.PatchStatus(email, status)
}
