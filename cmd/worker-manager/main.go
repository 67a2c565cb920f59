// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"brightsigns-workers/internal/catalog"
	"brightsigns-workers/internal/common/aws"
	"brightsigns-workers/internal/common/camunda"
	"brightsigns-workers/internal/common/config"
	"brightsigns-workers/internal/common/database"
	"brightsigns-workers/internal/common/logger"
	"brightsigns-workers/internal/common/observability"
	"brightsigns-workers/internal/estimation"
	"brightsigns-workers/internal/notify"
	"brightsigns-workers/internal/openai"
	"brightsigns-workers/internal/store"

	pe "brightsigns-workers/internal/workers/quote/process-estimate"
	see "brightsigns-workers/internal/workers/quote/send-estimate-email"
)

// retryWithBackoff attempts to execute a function with exponential backoff
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
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Shared pipeline components ---
	openaiClient := openai.NewClient(cfg.OpenAI)
	searcher := catalog.NewSearcher(esClient.Client, cfg.Catalog, log)
	extractor := estimation.NewExtractor(openaiClient, log)
	resolver := estimation.NewResolver(openaiClient, log)

	estimateStore := store.NewEstimateStore(pg.GetDB())
	requestStore := store.NewRequestStore(pg.GetDB())
	statusCache := store.NewStatusCache(redis.GetClient(), 0)

	estimator := estimation.NewEstimator(
		extractor, resolver, openaiClient, searcher,
		estimateStore, requestStore, statusCache, log,
	)

	// --- Notification clients, gated by config ---
	var alerter pe.Alerter
	if cfg.Notifications.Alerts.Enabled && cfg.Notifications.Alerts.TopicARN != "" {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		alerter = notify.NewFailureAlerter(snsClient, cfg.Notifications.Alerts.TopicARN, log)
	}

	var emailSender see.EmailSender
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailSender = sesClient
	}

	// --- Register Workers ---
	var workers []*camunda.CamundaWorker

	if wcfg := cfg.Workers[pe.TaskType]; wcfg.Enabled {
		peConfig := pe.LoadConfig()
		if wcfg.Timeout > 0 {
			peConfig.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
		}
		if wcfg.MaxJobsActive > 0 {
			peConfig.MaxJobsActive = wcfg.MaxJobsActive
		}

		service := pe.NewService(estimator, estimateStore, alerter, log)
		handler := pe.NewHandler(peConfig, service, log)

		w := camunda.NewWorker(camundaClient.GetClient(), pe.TaskType, peConfig.MaxJobsActive, handler, obs, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	if wcfg := cfg.Workers[see.TaskType]; wcfg.Enabled {
		seeConfig := see.LoadConfig()
		if wcfg.Timeout > 0 {
			seeConfig.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
		}
		if wcfg.MaxJobsActive > 0 {
			seeConfig.MaxJobsActive = wcfg.MaxJobsActive
		}

		service := see.NewService(emailSender, estimateStore, requestStore, cfg.Notifications, log)
		handler := see.NewHandler(seeConfig, service, log)

		w := camunda.NewWorker(camundaClient.GetClient(), see.TaskType, seeConfig.MaxJobsActive, handler, obs, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	zapLog.Info("All workers registered successfully", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "unavailable",
					"error":  err.Error(),
					"time":   time.Now().Format(time.RFC3339),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
