package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/baechuer/roadside-admin/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS license_review_decisions (
	id          UUID PRIMARY KEY,
	email       TEXT NOT NULL,
	decision    TEXT NOT NULL,
	status      TEXT NOT NULL,
	reviewer    TEXT NOT NULL,
	decided_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS license_review_decisions_email_idx
	ON license_review_decisions (email, decided_at DESC);
`

// PostgresDecisionLog stores decisions in license_review_decisions.
type PostgresDecisionLog struct {
	db *sql.DB
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresDecisionLog(db *sql.DB) *PostgresDecisionLog {
	return &PostgresDecisionLog{db: db}
}

func (l *PostgresDecisionLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (l *PostgresDecisionLog) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO license_review_decisions (id, email, decision, status, reviewer, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Email, string(e.Decision), string(e.Status), e.Reviewer, e.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (l *PostgresDecisionLog) ListByEmail(ctx context.Context, email string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, email, decision, status, reviewer, decided_at
		FROM license_review_decisions
		WHERE email = $1
		ORDER BY decided_at DESC
		LIMIT $2`, email, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var (
			e                Entry
			decision, status string
		)
		if err := rows.Scan(&e.ID, &e.Email, &decision, &status, &e.Reviewer, &e.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.Decision = domain.Decision(decision)
		e.Status = domain.LicenseStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}

// Ping reports whether the database is reachable.
func (l *PostgresDecisionLog) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
