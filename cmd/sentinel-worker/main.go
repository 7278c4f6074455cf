package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sentinelsec/sentinel/internal/core"
	"github.com/sentinelsec/sentinel/internal/di"
	"github.com/sentinelsec/sentinel/internal/worker"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildWorkerContainer()
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
	pool *worker.Pool,
	queue core.JobQueue,
	store core.ReportStore,
	events core.EventPublisher,
	classifier core.Classifier,
) error {
	defer logger.Sync()

	pool.Start()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	pool.Stop()

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
	if closer, ok := events.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
