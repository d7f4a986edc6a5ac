package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/api"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/config"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/llm"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/service"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("model", cfg.LLM.Model).
		Msg("Starting SQLite chatbot API server")

	keyPool, err := llm.NewKeyPool(cfg.LLM.APIKeys())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build API key pool")
	}
	log.Info().Int("keys", keyPool.Size()).Msg("API key pool ready")

	client := llm.NewClient(keyPool, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.Referer, cfg.LLM.Title)
	manager := service.NewManager(client, llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.RequestTimeout,
	}, cfg.Chat.MaxHistoryLength, cfg.Chat.MaxSampleRows)

	router := api.NewRouter(cfg, manager)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
