package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/meetingbrain/assistant/internal/assistant"
	"github.com/meetingbrain/assistant/internal/cache"
	"github.com/meetingbrain/assistant/internal/chatapi"
	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/contracts"
	"github.com/meetingbrain/assistant/internal/decision"
	"github.com/meetingbrain/assistant/internal/llm"
	"github.com/meetingbrain/assistant/internal/logging"
	"github.com/meetingbrain/assistant/internal/orchestrator"
	"github.com/meetingbrain/assistant/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it: %v", err)
	}

	var (
		httpAddr    = flag.String("http-addr", "", "HTTP server address (overrides LISTEN_ADDR)")
		showVersion = flag.Bool("version", false, "Show version and exit")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("meeting-assistant v0.1.0")
		os.Exit(0)
	}

	cfg := config.Load()
	if *httpAddr != "" {
		cfg.ListenAddr = *httpAddr
	}
	logging.SetVerbose(*verbose || cfg.Verbose)
	logger := logging.For("main")

	if err := run(cfg, logger); err != nil {
		log.Fatalf("meeting-assistant: %v", err)
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	postgresStore, err := store.NewPostgresStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect artifact store: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	logStore := cache.NewInteractionLogStore(redisClient)

	meetingCache, err := cache.NewRedisCache(redisClient, "store", &cache.MeetingMetaTTL)
	if err != nil {
		return fmt.Errorf("build meeting metadata cache: %w", err)
	}
	var artifactStore store.ArtifactStore = store.NewCachedStore(postgresStore, meetingCache)

	openaiModel, err := openai.New(openai.WithToken(cfg.LLMAPIKey))
	if err != nil {
		return fmt.Errorf("initialize LLM provider: %w", err)
	}
	client := llm.NewLangchainClient(openaiModel, cfg.LLMTimeout, cfg.Verbose)

	classifier := decision.New(client, cfg)
	orch := orchestrator.New(artifactStore, client, nil, cfg)
	executor := contracts.New(artifactStore, orch, client, nil, nil, cfg)
	handler := assistant.New(artifactStore, logStore, classifier, orch, executor, cfg)

	server := chatapi.NewServer(cfg.ListenAddr, handler)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	logger.Info().Str("address", cfg.ListenAddr).Msg("meeting-assistant started")

	select {
	case sig := <-signalChan:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errChan:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error shutting down chat surface server")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
