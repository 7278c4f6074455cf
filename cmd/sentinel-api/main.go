package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sentinelsec/sentinel/internal/adapters/events"
	"github.com/sentinelsec/sentinel/internal/api"
	"github.com/sentinelsec/sentinel/internal/core"
	"github.com/sentinelsec/sentinel/internal/di"
	"github.com/sentinelsec/sentinel/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildAPIContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	server *api.Server,
	broadcaster *api.Broadcaster,
	subscriber *events.RedisSubscriber,
	intake ports.Intake,
	queue core.JobQueue,
	store core.ReportStore,
) error {
	defer logger.Sync()

	// Relay worker status events into the SSE broadcaster
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if subscriber != nil {
		go subscriber.Run(ctx, broadcaster.Broadcast)
	}

	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start API server", zap.Error(err))
		return err
	}
	if intake != nil {
		if err := intake.Start(); err != nil {
			logger.Fatal("Failed to start SMTP intake", zap.Error(err))
			return err
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if intake != nil {
		if err := intake.Stop(); err != nil {
			logger.Error("Failed to stop SMTP intake", zap.Error(err))
		}
	}
	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop API server", zap.Error(err))
	}
	if subscriber != nil {
		subscriber.Stop()
	}

	// Close any resources that need closing
	if closer, ok := queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close job queue", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
