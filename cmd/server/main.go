package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"jobqueue-service/internal/api"
	"jobqueue-service/internal/core/executor"
	"jobqueue-service/internal/core/services"
	"jobqueue-service/internal/infrastructure/logger"
	"jobqueue-service/internal/infrastructure/metrics"
	"jobqueue-service/internal/infrastructure/queue"
	"jobqueue-service/internal/pkg/config"
	"jobqueue-service/internal/pkg/pool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.NewStructuredLogger(&cfg.Logger)
	defer log.Sync()

	// Core wiring: store, queue, pool, dispatcher, boundary service.
	store := queue.NewStore()
	priorityQueue := queue.NewPriorityQueue()
	m := metrics.New()

	run := buildExecutor(cfg.Executor)

	workerPool := pool.NewWorkerPool(pool.Config{
		MaxWorkers:    cfg.Worker.MaxWorkers,
		MinWorkers:    cfg.Worker.MinWorkers,
		RestartLimit:  cfg.Worker.RestartLimit,
		RestartWindow: cfg.Worker.RestartWindow,
	}, run, store, log)

	dispatcher := services.NewDispatcher(services.DispatcherConfig{
		MinWorkers:      cfg.Worker.MinWorkers,
		CapacityBackoff: cfg.Dispatcher.CapacityBackoff,
		IdleSleep:       cfg.Dispatcher.IdleSleep,
		RestartBackoff:  cfg.Dispatcher.RestartBackoff,
		MaxRestarts:     cfg.Dispatcher.MaxRestarts,
	}, priorityQueue, store, workerPool, m, log)

	service := services.NewJobService(services.JobServiceConfig{
		DefaultTimeoutMs:  cfg.Queue.DefaultTimeoutMs,
		DefaultMaxRetries: cfg.Queue.DefaultMaxRetries,
		QueueSoftCapacity: cfg.Queue.SoftCapacity,
	}, store, priorityQueue, dispatcher, m, log)

	dispatcher.Start()

	server := api.NewServer(cfg, service, m, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := dispatcher.Stop(ctx); err != nil {
		log.Error("Dispatcher forced to shutdown", "error", err)
	}
	workerPool.Shutdown()

	log.Info("Server exited")
}

func buildExecutor(cfg config.ExecutorConfig) executor.Executor {
	switch cfg.Type {
	case "echo":
		return executor.Echo(cfg.EchoDelay)
	default:
		return executor.Shell(cfg.Shell)
	}
}
