package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ShrutiSoni4370/HealNest-sub001/internal/ai"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/appointments"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/auth"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/hub"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/notify"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/presence"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/rooms"
	"github.com/ShrutiSoni4370/HealNest-sub001/internal/video"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/config"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/database"
	"github.com/ShrutiSoni4370/HealNest-sub001/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.CreateSchema(ctx); err != nil {
		logger.Fatalf("Failed to create database schema: %v", err)
	}

	// Wire the realtime components onto the event hub
	eventHub := hub.New(logger)
	registry := presence.NewRegistry(eventHub, logger)
	store := appointments.NewRepository(db, cfg.Realtime.AppointmentTTLDuration(), logger)
	registry.UseResolver(store)
	shadows := appointments.NewShadowStore(cfg.Realtime.CleanupIntervalDuration(), logger)
	bridge := appointments.NewBridge(eventHub, registry, store, shadows, logger)
	negotiator := rooms.NewNegotiator(eventHub, registry, logger)
	relay := video.NewRelay(eventHub, registry, store, shadows, cfg.Realtime.AnswerDedupTTLDuration(), logger)
	defer relay.Close()

	notifier := notify.NewService(&cfg.Notify, logger)
	chatClient := ai.NewGroqClient(&cfg.AI, logger)
	analyzer := ai.NewHuggingFaceAnalyzer(&cfg.AI, logger)
	companion := ai.NewCompanion(eventHub, registry, chatClient, analyzer, notifier, cfg.Notify.AlertEmail, logger)
	tokens := auth.NewTokenService(&cfg.JWT)
	verifier := auth.NewVerifier(auth.NewOTPManager(cfg.JWT.VerificationCodeTTLDuration()), notifier, logger)

	if err := registry.RegisterHandlers(eventHub); err != nil {
		logger.Fatalf("Failed to register presence handlers: %v", err)
	}
	if err := negotiator.RegisterHandlers(eventHub); err != nil {
		logger.Fatalf("Failed to register room handlers: %v", err)
	}
	if err := bridge.RegisterHandlers(eventHub); err != nil {
		logger.Fatalf("Failed to register appointment handlers: %v", err)
	}
	if err := relay.RegisterHandlers(eventHub); err != nil {
		logger.Fatalf("Failed to register video handlers: %v", err)
	}
	if err := companion.RegisterHandlers(eventHub); err != nil {
		logger.Fatalf("Failed to register companion handlers: %v", err)
	}

	go eventHub.Run(ctx)
	go shadows.Run(ctx)

	server := hub.NewServer(cfg, eventHub, logger, tokens, verifier, map[string]hub.HealthCheck{
		"database": db.Health,
	})

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start realtime gateway: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down realtime gateway...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Realtime gateway stopped")
}
