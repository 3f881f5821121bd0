package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"askrelay/internal/config"
	"askrelay/internal/database"
	"askrelay/internal/handlers"
	"askrelay/internal/router"
	"askrelay/internal/services"
)

func main() {
	log.Println("🚀 Starting Ask Relay...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Optional Redis for relay events ────
	var events services.EventPublisher
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		events = services.NewRedisEventPublisher(redisClient, cfg.EventsChannel)
		log.Printf("✓ Redis connected, publishing relay events on %q", cfg.EventsChannel)
	}

	// ──── Step 3: Initialize Upstream Client ────
	opts := services.CompletionOptions{
		URL:         cfg.UpstreamURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.UpstreamModel,
		Timeout:     cfg.UpstreamTimeout,
		Temperature: cfg.TemperatureParam(),
	}

	var client services.CompletionClient
	switch cfg.UpstreamClient {
	case config.UpstreamClientEino:
		einoClient, err := services.NewEinoCompletionClient(context.Background(), opts)
		if err != nil {
			log.Fatalf("✗ Upstream client initialization failed: %v", err)
		}
		client = einoClient
	default:
		client = services.NewHTTPCompletionClient(opts)
	}
	log.Printf("✓ Upstream client ready (%s, model %s)", cfg.UpstreamClient, cfg.UpstreamModel)

	// ──── Step 4: Initialize Relay ────
	relayService := services.NewRelayService(client, events, cfg.UpstreamModel, services.RelayPolicy{
		RequireHistory:  cfg.RequireHistory,
		ValidateHistory: cfg.ValidateHistory,
		TrimHistory:     cfg.TrimHistory,
		TrimWindow:      cfg.TrimWindow,
		SystemPrompt:    cfg.SystemPrompt,
		EmptyAnswer:     cfg.EmptyAnswer,
	})
	relayHandler := handlers.NewRelayHandler(relayService, cfg.ErrorMode)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(relayHandler, cfg.StaticDir, cfg.AllowedOrigin)

	// The write deadline must outlive the upstream call.
	var writeTimeout time.Duration
	if cfg.UpstreamTimeout > 0 {
		writeTimeout = cfg.UpstreamTimeout + 15*time.Second
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Ask Relay ready on http://localhost:%s (error mode: %s)", cfg.Port, cfg.ErrorMode)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
