package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/config"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/notifier"
	"github.com/vasapolrittideah/orvane-auth/shared/logger"
	"github.com/vasapolrittideah/orvane-auth/shared/mailer"
)

const serviceName = "auth-worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewAuthServiceConfig()
	if err != nil {
		logger.New(logger.Config{}, serviceName).Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Log, serviceName)

	m, err := mailer.NewMailer(cfg.SMTP)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mailer")
	}

	worker := notifier.NewWorker(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		cfg.Mail.WorkerConcurrency,
		notifier.NewSendEmailHandler(m, cfg.Mail.Timeout, log),
		log,
	)

	log.Info().Int("concurrency", cfg.Mail.WorkerConcurrency).Msg("mail worker started")
	if err := worker.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("mail worker stopped with error")
	}
	log.Info().Msg("mail worker stopped")
}
