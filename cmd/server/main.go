// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/wlboard/wlboard/departures"
	"github.com/wlboard/wlboard/internal/broker"
	"github.com/wlboard/wlboard/internal/cache"
	"github.com/wlboard/wlboard/internal/config"
	"github.com/wlboard/wlboard/internal/feedback"
	appmw "github.com/wlboard/wlboard/internal/http/middleware"
	"github.com/wlboard/wlboard/internal/http/routes"
	"github.com/wlboard/wlboard/internal/ratelimit"
	"github.com/wlboard/wlboard/internal/stations"
	"github.com/wlboard/wlboard/wl"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	// Station dataset is optional; search is just disabled without it.
	var dir *stations.Directory
	if d, err := stations.Load(cfg.StationsFile); err != nil {
		logger.Warn().Err(err).Str("file", cfg.StationsFile).Msg("station dataset not loaded")
	} else {
		dir = d
		logger.Info().Int("stations", d.Len()).Msg("station dataset loaded")
	}

	// The departure pipeline: fetch client behind cache and rate limiter,
	// aggregator on top.
	client := wl.New(wl.WithBaseURL(cfg.UpstreamURL), wl.WithSender(cfg.UpstreamSender))
	limiter := ratelimit.New(cfg.RateLimit, cfg.RateWindow)
	store := cache.NewMemory()
	svc := broker.New(client, store, limiter, cfg.CacheTTL, logger)

	aggOpts := []departures.AggregatorOption{}
	if dir != nil {
		aggOpts = append(aggOpts, departures.WithHints(dir))
	}
	agg := departures.NewAggregator(svc, logger, aggOpts...)

	// Feedback service only with a database.
	var fb *feedback.Service
	if cfg.HasFeedback() {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("db")
		}
		defer pool.Close()

		fbStore := feedback.NewStore(pool)
		if err := fbStore.EnsureSchema(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("db schema")
		}

		var queue *asynq.Client
		if cfg.HasNotifications() {
			queue = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer queue.Close()
		}
		fb = feedback.NewService(fbStore, queue, logger)
		logger.Info().Bool("notifications", queue != nil).Msg("feedback service enabled")
	}

	// Anonymous sessions give browsers a stable rate-limit identity.
	sess := scs.New()
	sess.Lifetime = 12 * time.Hour
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode

	s := routes.New(routes.ServerOptions{
		Broker:     svc,
		Aggregator: agg,
		Stations:   dir,
		Feedback:   fb,
		Identity:   appmw.ClientID(sess),
		Log:        logger,
	})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      sess.LoadAndSave(h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
