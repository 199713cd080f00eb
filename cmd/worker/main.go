package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/wlboard/wlboard/internal/config"
	"github.com/wlboard/wlboard/internal/email"
	"github.com/wlboard/wlboard/internal/feedback"
	"github.com/wlboard/wlboard/internal/jobs"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	if !cfg.HasFeedback() {
		logger.Fatal().Msg("worker requires DATABASE_URL")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db")
	}
	defer pool.Close()
	store := feedback.NewStore(pool)

	var sender email.Sender
	if cfg.SMTPAddr != "" {
		sender = email.NewSMTPSender(cfg.SMTPAddr, cfg.EmailFrom)
	} else {
		sender = email.StdoutSender{}
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"default": 5,
		},
	})
	mux := asynq.NewServeMux()

	mux.HandleFunc(jobs.TaskFeedbackNotify, func(ctx context.Context, t *asynq.Task) error {
		var p jobs.FeedbackNotifyPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			logger.Error().Err(err).Msg("bad payload")
			return err
		}

		id, err := uuid.Parse(p.FeedbackID)
		if err != nil {
			logger.Error().Str("feedback", p.FeedbackID).Msg("bad feedback id, dropping job")
			return nil
		}

		entry, err := store.Get(ctx, id)
		if errors.Is(err, feedback.ErrNotFound) {
			logger.Warn().Str("feedback", p.FeedbackID).Msg("entry vanished, dropping job")
			return nil
		}
		if err != nil {
			return err // transient db trouble, let asynq retry
		}

		subject := fmt.Sprintf("New %s feedback", entry.Category)
		body := fmt.Sprintf("<p><b>%s</b> (%s)</p><p>%s</p><p>From: %s</p>",
			html.EscapeString(entry.Category),
			entry.CreatedAt.Format("2006-01-02 15:04"),
			html.EscapeString(entry.Message),
			html.EscapeString(entry.Email))
		if err := sender.Send(cfg.FeedbackNotifyTo, subject, body); err != nil {
			logger.Warn().Err(err).Str("feedback", p.FeedbackID).Msg("notify send failed")
			return err
		}
		logger.Info().Str("feedback", p.FeedbackID).Msg("notified")
		return nil
	})

	logger.Info().Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker")
	}
}
