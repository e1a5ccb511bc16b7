// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	http_api "stashed-tasks/internal/api/http"
	"stashed-tasks/internal/callback"
	"stashed-tasks/internal/config"
	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/infra/etcd"
	"stashed-tasks/internal/infra/memory"
	"stashed-tasks/internal/infra/qstash"
	"stashed-tasks/internal/sampletasks"
	"stashed-tasks/internal/scheduler"
	"stashed-tasks/internal/task"
	"stashed-tasks/internal/tracing"
	"stashed-tasks/internal/usecase"
	"stashed-tasks/internal/webhook"

	"github.com/google/uuid"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize logger and tracer
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	tracerShutdown, err := tracing.InitTracer("stashed-tasks-server", cfg.TracingEnabled)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}()

	nodeID := uuid.New().String()
	logger.Info("starting stashed-tasks server", "node_id", nodeID)

	// 3. Root context and graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(cancel, logger)

	// 4. Persistence: etcd when endpoints are configured, memory otherwise
	var (
		results       domain.ResultRepository
		schedules     domain.ScheduleRepository
		leaderManager domain.LeaderElectionManager
	)
	if cfg.UsesEtcd() {
		etcdClient, err := etcd.NewClient(cfg.Etcd.Endpoints, cfg.Etcd.Timeout)
		if err != nil {
			log.Fatalf("Failed to create etcd client: %v", err)
		}
		defer etcdClient.Close()
		logger.Info("connected to etcd", "endpoints", cfg.Etcd.Endpoints)

		results = etcd.NewResultRepository(etcdClient, cfg.Webhook.ResultTTL, logger)
		schedules = etcd.NewScheduleRepository(etcdClient, logger)
		leaderManager = etcd.NewLeaderElectionManager(etcdClient, nodeID, cfg.Etcd.LeaderElectionTTL, logger)
	} else {
		logger.Warn("no etcd endpoints configured, results and schedules are kept in memory")
		results = memory.NewResultRepository(cfg.Webhook.ResultTTL)
		schedules = memory.NewScheduleRepository()
	}

	// 5. Tasks and the queue client
	callbackURL := callback.Builder{
		Domain:     cfg.Webhook.Domain,
		Path:       cfg.Webhook.Path,
		ForceHTTPS: cfg.Webhook.ForceHTTPS,
	}
	client := qstash.NewClient(cfg.QStash.Token, cfg.QStash.URL, cfg.QStash.Timeout, logger)

	registry := task.NewRegistry()
	app := task.NewApp(registry, client, callbackURL.URL, logger)
	if err := app.Install(sampletasks.Module(logger)); err != nil {
		log.Fatalf("Failed to register tasks: %v", err)
	}

	// 6. Webhook receiver
	verifier, err := webhook.NewJWTVerifier(
		cfg.QStash.CurrentSigningKey,
		cfg.QStash.NextSigningKey,
		callbackURL.URL(),
		webhook.WithClockSkew(cfg.Webhook.ClockSkew),
	)
	if err != nil {
		log.Fatalf("Failed to create signature verifier: %v", err)
	}
	receiver := webhook.NewReceiver(verifier, registry, results, logger)

	// 7. Services and handlers
	scheduleService := usecase.NewScheduleService(schedules, client, registry, callbackURL.URL, logger)
	resultService := usecase.NewResultService(results, logger)

	router := http_api.NewRouter(http_api.RouterConfig{
		WebhookPath: "/" + strings.Trim(cfg.Webhook.Path, "/") + "/",
		Webhook:     webhook.NewHandler(receiver, cfg.Webhook.MaxBodyBytes, logger),
		Schedules:   http_api.NewScheduleHandler(scheduleService, logger),
		Results:     http_api.NewResultHandler(resultService, registry, logger),
		Logger:      logger,
	})

	// 8. Schedule reconciler
	if cfg.Schedules.SyncEnabled {
		syncService := usecase.NewScheduleSyncService(
			leaderManager,
			func() domain.Scheduler { return scheduler.NewCronScheduler(logger) },
			scheduleService,
			cfg.Schedules.SyncCron,
			nodeID,
			logger,
		)
		go func() {
			if err := syncService.Start(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("schedule sync service stopped with error", "error", err)
			}
		}()
	}

	// 9. HTTP server
	server := &http.Server{
		Addr:              cfg.HttpListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HttpListenAddr, "callback_url", callbackURL.URL(), "tasks", registry.Names())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	// 10. Block until shutdown
	<-rootCtx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func setupGracefulShutdown(cancel context.CancelFunc, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())
		cancel()
	}()
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
