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

	"github.com/oznakn/enhanced-embedded-queue/internal/api"
	"github.com/oznakn/enhanced-embedded-queue/internal/core/queue"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/repository"
	"github.com/oznakn/enhanced-embedded-queue/internal/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStructuredLogger(&cfg.Logger)
	defer appLogger.Sync()

	q, err := queue.New(repository.Options{
		Backend:  cfg.Repository.Backend,
		Filename: cfg.Repository.Filename,
		Autoload: cfg.Repository.Autoload,
		Warn:     appLogger.Warn,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("failed to open queue", "error", err)
	}
	defer q.Close()

	server := api.NewServer(cfg, appLogger, q)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
	}

	appLogger.Info("server exited")
}
