package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice_translator_bot/internal/config"
	"voice_translator_bot/internal/googletts"
	"voice_translator_bot/internal/health"
	"voice_translator_bot/internal/logging"
	"voice_translator_bot/internal/openai"
	"voice_translator_bot/internal/pipeline"
	"voice_translator_bot/internal/store"
	"voice_translator_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	healthShutdownTimeout   = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":         "startup",
		"store_backend": cfg.StoreBackend,
	}).Info("configuration loaded")

	var (
		settings telegram.SettingsStore
		usage    telegram.UsageRecorder
		checker  health.StoreChecker
	)

	var mongoManager *store.Manager
	if cfg.UsesMongo() {
		connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
		mongoManager, err = store.NewManager(connectCtx, cfg)
		cancel()
		if err != nil {
			logger.WithError(err).Error("mongo connection error")
			fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
			os.Exit(1)
		}

		logger.WithField("event", "mongo_connect").Info("connected to mongo")

		indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
		if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
			cancelIndexes()
			logger.WithError(err).Error("mongo index setup error")
			fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
			os.Exit(1)
		}
		cancelIndexes()

		logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

		settings = store.NewMongoSettings(mongoManager.ChatSettings(), logger)
		usage = store.NewMongoStats(mongoManager.UsageUsers(), mongoManager.UsageChats(), mongoManager.UsageDaily())
		checker = mongoManager
	} else {
		fileSettings, err := store.NewFileSettings(cfg.SettingsFile, logger)
		if err != nil {
			logger.WithError(err).Error("settings store setup error")
			fmt.Fprintf(os.Stderr, "settings store setup error: %v\n", err)
			os.Exit(1)
		}
		fileStats, err := store.NewFileStats(cfg.StatsFile, logger)
		if err != nil {
			logger.WithError(err).Error("stats store setup error")
			fmt.Fprintf(os.Stderr, "stats store setup error: %v\n", err)
			os.Exit(1)
		}

		settings = fileSettings
		usage = fileStats
		checker = fileSettings
	}

	aiClient := openai.New("", cfg.OpenAIAPIKey)
	processor := pipeline.NewProcessor(aiClient, aiClient, logger)

	clientOpts := []telegram.Option{
		telegram.WithSettingsStore(settings),
		telegram.WithUsageRecorder(usage),
		telegram.WithProcessor(processor),
		telegram.WithTranscriber(aiClient),
		telegram.WithSpeechSynthesizer(aiClient),
	}
	if cfg.GoogleTTSAPIKey != "" {
		clientOpts = append(clientOpts, telegram.WithIndonesianSpeech(googletts.New("", cfg.GoogleTTSAPIKey)))
		logger.WithField("event", "google_tts_enabled").Info("indonesian voice replies enabled")
	}

	tgClient, err := telegram.NewClient(cfg, logger, clientOpts...)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, checker, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHealth()

	if mongoManager != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		if err := mongoManager.Close(shutdownCtx); err != nil {
			logger.WithError(err).Error("mongo disconnect error")
		} else {
			logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
		}
		cancelShutdown()
	}

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
