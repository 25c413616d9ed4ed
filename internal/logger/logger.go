// Package logger holds the process-wide zerolog logger.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/roadside-admin/middleware"
)

const service = "roadside-admin"

var Log = zerolog.Nop()

// Init configures Log from LOG_LEVEL and LOG_FORMAT. LOG_FORMAT defaults to
// console in dev and json elsewhere.
func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "json"
		if env := os.Getenv("APP_ENV"); env == "" || env == "dev" {
			format = "console"
		}
	}

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	Log = zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger().
		Level(level)
	zlog.Logger = Log
}

// Ctx returns Log enriched with the request id and signed-in admin found
// in ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	reqID := middleware.GetRequestID(ctx)
	admin := middleware.GetAdmin(ctx)
	if reqID == "" && admin == "" {
		return &Log
	}
	c := Log.With()
	if reqID != "" {
		c = c.Str("request_id", reqID)
	}
	if admin != "" {
		c = c.Str("admin", admin)
	}
	l := c.Logger()
	return &l
}
