package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/roadside-admin/internal/api"
	"github.com/baechuer/roadside-admin/internal/api/handlers"
	"github.com/baechuer/roadside-admin/internal/audit"
	"github.com/baechuer/roadside-admin/internal/config"
	"github.com/baechuer/roadside-admin/internal/directory"
	"github.com/baechuer/roadside-admin/internal/downstream"
	"github.com/baechuer/roadside-admin/internal/enrich"
	"github.com/baechuer/roadside-admin/internal/logger"
	"github.com/baechuer/roadside-admin/internal/notify"
	"github.com/baechuer/roadside-admin/internal/review"
	"github.com/baechuer/roadside-admin/internal/session"
	"github.com/baechuer/roadside-admin/internal/tracing"
)

var version = "dev"

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}

	logger.Init()
	zlog.Info().Str("env", cfg.AppEnv).Msg("logger initialized")

	ctx := context.Background()

	tp, err := tracing.InitTracing(ctx, tracing.Config{
		ServiceName:    "roadside-admin",
		ServiceVersion: version,
		Environment:    cfg.AppEnv,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRatio:    cfg.OTELSampleRatio,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("tracing init failed")
	}

	// 2. Optional infrastructure
	var (
		rdb      *redis.Client
		tokens   session.TokenStore = session.NewMemoryTokenStore()
		checkers []handlers.ReadinessChecker
	)
	checkers = append(checkers, handlers.NewHTTPReadinessChecker("directory", cfg.DirectoryURL+"/"))

	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zlog.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		defer rdb.Close()
		tokens = session.NewRedisTokenStore(rdb)
		checkers = append(checkers, handlers.NewPingChecker("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	} else {
		zlog.Warn().Msg("REDIS_ADDR not set: sessions are kept in memory and rate limiting is per process")
	}

	var decisions review.DecisionLog = review.NopDecisionLog{}
	if cfg.DatabaseURL != "" {
		db, err := review.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal().Err(err).Msg("postgres connect failed")
		}
		defer db.Close()
		pg := review.NewPostgresDecisionLog(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			zlog.Fatal().Err(err).Msg("decision log schema failed")
		}
		decisions = pg
		checkers = append(checkers, handlers.NewPingChecker("postgres", pg.Ping))
	}

	var publisher notify.Publisher = notify.LogPublisher{}
	if cfg.RabbitURL != "" {
		rp, err := notify.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			zlog.Fatal().Err(err).Msg("rabbitmq connect failed")
		}
		defer rp.Close()
		publisher = rp
		checkers = append(checkers, handlers.NewPingChecker("rabbitmq", rp.Ping))
	}

	// 3. Domain wiring
	auditor := audit.New(logger.Log)
	client := downstream.NewDirectoryClient(cfg.DirectoryURL, downstream.NewClient(downstream.ClientConfig{
		ReadTimeout:  cfg.DownstreamReadTimeout,
		WriteTimeout: cfg.DownstreamWriteTimeout,
	}))
	enricher := enrich.New(client, enrich.Config{
		Concurrency:   cfg.EnrichConcurrency,
		LookupTimeout: cfg.EnrichLookupTimeout,
	})

	sessions := session.NewRegistry(func() *session.Workspace {
		view := directory.NewView(client, enricher)
		return &session.Workspace{
			View:     view,
			Workflow: review.NewWorkflow(client, view, decisions, auditor),
		}
	}, cfg.JWTTTL)

	r := api.NewRouter(cfg, api.Handlers{
		Readiness:     handlers.NewReadinessHandler(checkers...),
		Auth:          handlers.NewAuthHandler(client, tokens, sessions, auditor, cfg.JWTSecret, cfg.JWTTTL),
		Users:         handlers.NewUsersHandler(sessions),
		Review:        handlers.NewReviewHandler(sessions, decisions),
		Overview:      handlers.NewOverviewHandler(client),
		Notifications: handlers.NewNotificationsHandler(notify.NewComposer(publisher, auditor)),
	}, tokens, rdb)

	// 4. Start Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info().Str("port", cfg.Port).Str("directory", cfg.DirectoryURL).Msg("roadside admin starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("shutdown error")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("tracer shutdown error")
	}
}
