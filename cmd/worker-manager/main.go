package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"petition-workers/internal/common/aws"
	"petition-workers/internal/common/camunda"
	"petition-workers/internal/common/config"
	"petition-workers/internal/common/database"
	"petition-workers/internal/common/genai"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/common/observability"
	"petition-workers/internal/letter/assembler"
	"petition-workers/internal/letter/compliance"
	al "petition-workers/internal/workers/petition/assemble-letter"
	cc "petition-workers/internal/workers/petition/check-compliance"
	rf "petition-workers/internal/workers/petition/reconcile-finances"
	vd "petition-workers/internal/workers/petition/validate-dates"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if err := config.RequireBroker(cfg); err != nil {
		zapLog.Fatal("invalid configuration", zap.Error(err))
	}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()
	camunda.SetObservability(obs)

	ctx := context.Background()

	zeebe, err := camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	catalog, err := compliance.DefaultCatalog()
	if err != nil {
		zapLog.Fatal("rule catalog failed to load", zap.Error(err))
	}
	settings := assembler.SettingsFromConfig(cfg.Letter)

	generator, redis := buildGenerator(ctx, cfg, log, zapLog)
	if redis != nil {
		defer redis.Close()
	}

	opts := []assembler.Option{
		assembler.WithLogger(log),
		assembler.WithObservability(obs),
	}
	if generator != nil {
		opts = append(opts, assembler.WithGenerator(generator))
	}
	if cfg.Notifications.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.SNS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		opts = append(opts, assembler.WithNotifier(aws.NewReviewNotifier(snsClient, cfg.Notifications.SNS.TopicARN)))
		zapLog.Info("Review notifications enabled", zap.String("topic", cfg.Notifications.SNS.TopicARN))
	}
	letters := assembler.New(settings, catalog, opts...)

	var workers []*camunda.CamundaWorker
	start := func(taskType string, enabled bool, maxJobs int, timeout time.Duration, handler camunda.JobHandler) {
		if !enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      taskType,
			MaxJobsActive: maxJobs,
			Timeout:       timeout,
			Name:          cfg.App.Name,
		}, handler, log))
	}

	{
		wcfg := rf.FromWorkerConfig(config.GetWorkerConfig(cfg, rf.TaskType))
		mustValidate(zapLog, rf.TaskType, wcfg.Validate())
		start(rf.TaskType, wcfg.Enabled, wcfg.MaxJobsActive, wcfg.Timeout, rf.NewHandler(wcfg, log))
	}

	{
		wcfg := vd.FromWorkerConfig(config.GetWorkerConfig(cfg, vd.TaskType))
		mustValidate(zapLog, vd.TaskType, wcfg.Validate())
		start(vd.TaskType, wcfg.Enabled, wcfg.MaxJobsActive, wcfg.Timeout, vd.NewHandler(wcfg, log))
	}

	{
		wcfg := cc.FromWorkerConfig(config.GetWorkerConfig(cfg, cc.TaskType))
		mustValidate(zapLog, cc.TaskType, wcfg.Validate())
		start(cc.TaskType, wcfg.Enabled, wcfg.MaxJobsActive, wcfg.Timeout,
			cc.NewHandler(wcfg, catalog, settings.Compliance, log))
	}

	{
		wcfg := al.FromWorkerConfig(config.GetWorkerConfig(cfg, al.TaskType))
		mustValidate(zapLog, al.TaskType, wcfg.Validate())
		if generator == nil {
			zapLog.Warn("assemble-letter running without a generator; jobs must supply sections")
		}
		start(al.TaskType, wcfg.Enabled, wcfg.MaxJobsActive, wcfg.Timeout, al.NewHandler(wcfg, letters, log))
	}

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "ready", http.StatusOK
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			status, code = "broker unreachable", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	zapLog.Info("Worker manager stopped gracefully")
}

// buildGenerator returns nil when no generation endpoint is configured. The
// redis cache is used only when redis answers a ping.
func buildGenerator(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) (assembler.Generator, *database.RedisClient) {
	completer, err := genai.NewCompleter(cfg.APIs.GenAI)
	if err != nil {
		zapLog.Warn("section generation disabled", zap.Error(err))
		return nil, nil
	}
	var gen genai.Generator = genai.NewSectionGenerator(completer, log).
		WithTimeout(config.GetDuration(cfg.APIs.GenAI.Timeout))

	if cfg.APIs.GenAI.CacheTTL <= 0 || cfg.Database.Redis.Address == "" {
		return gen, nil
	}
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Warn("generation cache disabled", zap.Error(err))
		redis.Close()
		return gen, nil
	}
	zapLog.Info("Redis connected successfully")
	cache := genai.NewSectionCache(redis, time.Duration(cfg.APIs.GenAI.CacheTTL)*time.Second)
	return genai.NewCachedGenerator(gen, cache, log), redis
}

func mustValidate(log *zap.Logger, taskType string, err error) {
	if err != nil {
		log.Fatal("invalid worker configuration", zap.String("taskType", taskType), zap.Error(err))
	}
}
