package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/roadside-admin/middleware"
)

// Logger provides structured audit logging for reviewer actions
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// LicenseOpened logs when a reviewer opens a user's license
func (l *Logger) LicenseOpened(ctx context.Context, email string, hasFront, hasBack bool) {
	l.log.Info().
		Str("action", "license_opened").
		Str("email", email).
		Bool("front_image", hasFront).
		Bool("back_image", hasBack).
		Str("reviewer", middleware.GetAdmin(ctx)).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("License opened for review")
}

// LicenseDecided logs an accepted review decision
func (l *Logger) LicenseDecided(ctx context.Context, email, decision string, patched int) {
	l.log.Info().
		Str("action", "license_decided").
		Str("email", email).
		Str("decision", decision).
		Int("records_patched", patched).
		Str("reviewer", middleware.GetAdmin(ctx)).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("License decision applied")
}

// LicenseDecisionFailed logs a decision the upstream did not accept
func (l *Logger) LicenseDecisionFailed(ctx context.Context, email, decision string, err error) {
	l.log.Warn().
		Err(err).
		Str("action", "license_decision_failed").
		Str("email", email).
		Str("decision", decision).
		Str("reviewer", middleware.GetAdmin(ctx)).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("License decision rejected by upstream")
}

// NotificationSent logs a composed notification and its delivery outcome
func (l *Logger) NotificationSent(ctx context.Context, id, target, status string) {
	l.log.Info().
		Str("action", "notification_sent").
		Str("notification_id", id).
		Str("target", target).
		Str("status", status).
		Str("sender", middleware.GetAdmin(ctx)).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("Notification composed")
}

// SessionStarted logs an admin login
func (l *Logger) SessionStarted(ctx context.Context, admin, sessionID string) {
	l.log.Info().
		Str("action", "session_started").
		Str("admin", admin).
		Str("session_id", sessionID).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("Admin signed in")
}

// SessionEnded logs an admin logout
func (l *Logger) SessionEnded(ctx context.Context, admin, sessionID string) {
	l.log.Info().
		Str("action", "session_ended").
		Str("admin", admin).
		Str("session_id", sessionID).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("Admin signed out")
}
