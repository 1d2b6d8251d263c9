package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"splitbill/internal/amqp"
	"splitbill/internal/app"
	"splitbill/internal/backend"
	"splitbill/internal/chat"
	"splitbill/internal/cli"
	"splitbill/internal/data"
	"splitbill/internal/data/remote"
	apphttp "splitbill/internal/http"
	"splitbill/internal/log"
	"splitbill/internal/metrics"
	"splitbill/internal/session"
)

// Transcripts untouched this long are dropped.
const chatIdleTTL = 24 * time.Hour

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cli.ExitOnError(logger, "Configuration validation failed", cfg.Validate())

	logger.Info("Starting splitbill",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"week_range", cfg.WeekRangeMode)

	m := metrics.New()

	bcfg, err := backend.FromAppConfig(cfg)
	cli.ExitOnError(logger, "Invalid backend configuration", err)
	bcfg.Observer = m
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	cli.ExitOnError(logger, "Failed to initialize backend", err, log.FieldBackend, cfg.DataBackend)

	// Events are optional; without a broker bills are saved but not mirrored.
	var (
		publisher  app.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction events disabled", log.FieldError, err)
			amqpClient = nil
		} else {
			publisher = amqpClient
		}
	}

	var uploader data.ImageUploader
	if cfg.ImgbbAPIKey != "" {
		uploader = remote.NewImgbb(cfg.ImgbbAPIKey, cfg.ImgbbEndpoint, nil, cfg.BackendTimeout)
	} else {
		logger.Info("No image host configured, photos are sent as data URLs")
	}

	state := app.New(app.Options{
		Backend:       result.Backend,
		Publisher:     publisher,
		Logger:        logger,
		CacheTTL:      cfg.CacheTTL,
		CacheObserver: m,
		Ledger:        cfg.LedgerOptions(),
	})

	chatSvc := chat.NewService(chat.Options{
		Proposer:       result.Backend,
		Uploader:       uploader,
		Committer:      state,
		Logger:         logger,
		RequestTimeout: cfg.ChatTimeout,
		IdleTTL:        chatIdleTTL,
	})
	m.RegisterPendingChats(chatSvc.Pending)

	sessions := session.NewManager(cfg.SessionSecret, 0,
		session.WithSecureCookie(cfg.SecureCookies),
		session.WithLogger(logger))

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		State:              state,
		Chat:               chatSvc,
		Sessions:           sessions,
		Metrics:            m,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	cli.ExitOnError(logger, "Failed to build HTTP server", err)

	// No write timeout: chat sockets are long lived and melody sets its own
	// deadlines.
	srv.ReadTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		_ = chatSvc.Close()
		_ = state.Close()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Closing AMQP client failed", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.ExitOnError(logger, "Server error", err, "port", cfg.Port)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
