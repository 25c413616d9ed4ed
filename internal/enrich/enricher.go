// Package enrich attaches license verification status to directory records.
package enrich

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/baechuer/roadside-admin/internal/domain"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/internal/tracing"
)

const (
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
	outcomeUnknown = "unknown_status"
)

var lookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "roadside_admin",
		Name:      "license_enrichment_lookups_total",
		Help:      "License status lookups issued during enrichment, by outcome",
	},
	[]string{"outcome"},
)

// LicenseLookup fetches license data for one email.
type LicenseLookup interface {
	LookupLicense(ctx context.Context, email string) (*domain.LicenseInfo, error)
}

type Config struct {
	// Concurrency caps the number of lookups in flight.
	Concurrency int
	// LookupTimeout bounds each individual lookup; zero means no extra bound.
	LookupTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:   8,
		LookupTimeout: 3 * time.Second,
	}
}

type Enricher struct {
	lookup LicenseLookup
	cfg    Config
}

func New(lookup LicenseLookup, cfg Config) *Enricher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Enricher{lookup: lookup, cfg: cfg}
}

// Enrich returns a copy of users with LicenseStatus taken from the license
// lookup of each email. Lookups run concurrently, at most Concurrency at a
// time, and the result is assembled only after all of them settle. A failed
// lookup leaves that record Pending and never affects the others. Records
// without an email are not looked up and stay Pending. Output order matches
// input order.
func (e *Enricher) Enrich(ctx context.Context, users []domain.User) []domain.User {
	ctx, span := tracing.StartSpan(ctx, "license.enrich")
	defer span.End()
	span.SetAttributes(
		attribute.Int("enrich.records", len(users)),
		attribute.Int("enrich.concurrency", e.cfg.Concurrency),
	)

	out := make([]domain.User, len(users))
	copy(out, users)

	g := &errgroup.Group{}
	g.SetLimit(e.cfg.Concurrency)

	for i := range out {
		email := strings.TrimSpace(out[i].Email)
		if email == "" {
			out[i].LicenseStatus = domain.LicensePending
			lookupsTotal.WithLabelValues(outcomeSkipped).Inc()
			continue
		}

		i := i
		g.Go(func() error {
			out[i].LicenseStatus = e.status(ctx, email)
			// Never abort the batch.
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Enricher) status(ctx context.Context, email string) domain.LicenseStatus {
	if err := ctx.Err(); err != nil {
		lookupsTotal.WithLabelValues(outcomeFailed).Inc()
		return domain.LicensePending
	}

	if e.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.LookupTimeout)
		defer cancel()
	}

	info, err := e.lookup.LookupLicense(ctx, email)
	if err != nil {
		lookupsTotal.WithLabelValues(outcomeFailed).Inc()
		logger.Ctx(ctx).Debug().Err(err).Str("email", email).Msg("license_lookup_failed")
		return domain.LicensePending
	}

	status, err := domain.ParseLicenseStatus(info.Status)
	if errors.Is(err, domain.ErrUnknownLicenseStatus) {
		lookupsTotal.WithLabelValues(outcomeUnknown).Inc()
		logger.Ctx(ctx).Warn().Err(err).Str("email", email).Msg("license_status_unrecognized")
		return status
	}
	lookupsTotal.WithLabelValues(outcomeOK).Inc()
	return status
}
