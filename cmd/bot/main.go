package main

import (
	"context"
	"errors"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/r0man1337/sesc-video-bot/internal/bot"
	"github.com/r0man1337/sesc-video-bot/internal/config"
	"github.com/r0man1337/sesc-video-bot/internal/events"
	"github.com/r0man1337/sesc-video-bot/internal/media"
	"github.com/r0man1337/sesc-video-bot/internal/observability"
	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
	"github.com/r0man1337/sesc-video-bot/internal/pipeline"
	"github.com/r0man1337/sesc-video-bot/internal/transcribe"
)

func main() {
	// Local development convenience; production supplies real env vars.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.Observability.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := media.CheckInstalled(); err != nil {
		// Not fatal: users get a clear message per submission, and the
		// binary can start before ffmpeg lands on the host.
		log.Warn().Err(err).Msg("ffmpeg not found on PATH")
	}

	// Readiness flips once the Telegram connection is established.
	var ready atomic.Bool
	metricsServer := observability.NewServer(cfg.Observability.MetricsAddr, ready.Load)
	metricsServer.Start()

	publisher := events.New(&events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Principal: cfg.Kafka.Principal,
	})
	defer publisher.Close()

	transcriber, err := transcribe.New(ctx, cfg.Transcription)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build transcriber")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Telegram")
	}
	ready.Store(true)

	transcoder := media.NewTranscoder()
	messenger := bot.NewMessenger(api)
	orch := pipeline.NewOrchestrator(
		messenger,
		transcoder,
		media.NewSplitter(transcoder),
		transcriber,
		publisher,
		cfg.Pipeline,
	)

	b := bot.New(api, messenger, orch, cfg)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("bot stopped with error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown failed")
	}

	log.Info().Msg("shutdown complete")
}
