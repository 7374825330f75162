package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/config"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/limiter"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/notifier"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/orvane-auth/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/orvane-auth/shared/auth"
	"github.com/vasapolrittideah/orvane-auth/shared/logger"
	"github.com/vasapolrittideah/orvane-auth/shared/mailer"
	"github.com/vasapolrittideah/orvane-auth/shared/security"
	"github.com/vasapolrittideah/orvane-auth/shared/validation"
)

const serviceName = "auth-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewAuthServiceConfig()
	if err != nil {
		logger.New(logger.Config{}, serviceName).Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Log, serviceName)

	mongoClient, err := repository.NewMongoClient(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	db := mongoClient.Database(cfg.Mongo.Database)
	tx := repository.NewMongoTransactor(mongoClient)
	userRepo := repository.NewUserMongoRepository(ctx, log, db)
	emailVerificationRepo := repository.NewEmailVerificationMongoRepository(ctx, log, db, tx)
	passwordResetRequestRepo := repository.NewPasswordResetRequestMongoRepository(ctx, log, db, tx)
	sessionRepo := repository.NewSessionMongoRepository(ctx, log, db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var attemptLimiter, requestLimiter usecase.Limiter
	if cfg.Limits.Enabled {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		attemptLimiter = limiter.NewFixedWindow(
			redisClient, "auth:verify", cfg.Limits.VerifyAttempts, cfg.Limits.VerifyWindow)
		requestLimiter = limiter.NewFixedWindow(
			redisClient, "auth:request", cfg.Limits.ResetRequests, cfg.Limits.ResetRequestWindow)
	}

	mailNotifier, closeNotifier := newNotifier(cfg, log)
	defer closeNotifier()

	validator := validation.New()
	hasher := security.NewPasswordHasher(cfg.Server.HashConcurrency)
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.PasswordResetTokenSecret)

	authUsecase := usecase.NewAuthUsecase(
		userRepo, emailVerificationRepo, sessionRepo, hasher, mailNotifier, validator, cfg)
	emailVerificationUsecase := usecase.NewEmailVerificationUsecase(
		tx, userRepo, emailVerificationRepo, sessionRepo, mailNotifier,
		attemptLimiter, requestLimiter, validator, log, cfg)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(
		tx, userRepo, passwordResetRequestRepo, sessionRepo, jwtAuth, hasher, mailNotifier,
		requestLimiter, validator, cfg)

	requestsPerMinute := 0
	if cfg.Limits.Enabled {
		requestsPerMinute = cfg.Limits.RequestsPerMinute
	}

	router := handler.NewRouter(handler.RouterConfig{
		Handler: handler.NewAuthHandler(
			authUsecase, emailVerificationUsecase, passwordResetUsecase, log, cfg.Server.CookieSecure),
		Logger:            log,
		RequestTimeout:    cfg.Server.RequestTimeout,
		RequestsPerMinute: requestsPerMinute,
		Production:        cfg.IsProduction(),
		Ping: func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		log.Info().Msg("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("http server stopped with error")
	}
}

// newNotifier builds the notifier selected by MAIL_MODE and a function that
// releases its resources.
func newNotifier(cfg *config.AuthServiceConfig, log *zerolog.Logger) (usecase.Notifier, func()) {
	composer, err := notifier.NewComposer(
		cfg.Mail.Product,
		cfg.AppPasswordResetURL,
		cfg.Token.EmailVerificationExpiresIn,
		cfg.Token.PasswordResetTokenExpiresIn,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse email templates")
	}

	if cfg.Mail.Mode == config.NotifierModeQueue {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close asynq client")
			}
		}
		return notifier.NewQueueNotifier(composer, client, cfg.Mail.MaxRetry, log), closeFn
	}

	m, err := mailer.NewMailer(cfg.SMTP)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mailer")
	}
	return notifier.NewEmailNotifier(composer, m), func() {}
}
