package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/applog"
	"github.com/Ladvien/self-sensored/internal/auth"
	"github.com/Ladvien/self-sensored/internal/batch"
	"github.com/Ladvien/self-sensored/internal/dbconn"
	"github.com/Ladvien/self-sensored/internal/ingest"
	"github.com/Ladvien/self-sensored/internal/mapping"
	"github.com/Ladvien/self-sensored/internal/metrics"
	"github.com/Ladvien/self-sensored/internal/rawstore"
	"github.com/Ladvien/self-sensored/internal/repository"
)

func main() {
	configManager, err := config.NewConfigManager("config.json")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := configManager.GetConfig()

	log := applog.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("starting health telemetry ingestion service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := dbconn.Open(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("database connection pool established")

	reg := metrics.New(prometheus.DefaultRegisterer)

	var limiter auth.RateLimiter
	if cfg.Auth.RateLimitBackend == "redis" {
		client := redisClient(cfg.Auth.RedisAddr)
		limiter = auth.NewRedisRateLimiter(client)
		log.WithField("addr", cfg.Auth.RedisAddr).Info("using redis rate limiter backend")
	} else {
		limiter = auth.NewMemoryRateLimiter()
		log.Info("using in-memory rate limiter backend")
	}

	keyStore := repository.NewKeyStore(db)
	audit := auth.NewAuditLogger(log, cfg.Auth.AuditLoggingEnabled)
	authGate := auth.NewAuthGate(keyStore, limiter, audit, cfg.Auth, reg)

	raw := rawstore.New(db)
	processor := batch.New(db, cfg.Batch, cfg.Validation, reg, log)
	table := mapping.NewTable()

	coordinator := ingest.NewCoordinator(raw, authGate, table, processor, audit,
		cfg.Server, cfg.Streaming, cfg.Auth.ReprocessJWTSecret, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      coordinator,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	go func() {
		log.WithField("addr", cfg.Server.Port).Info("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	printStartupInfo(cfg)

	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shutdown")
	}
	log.Info("server gracefully stopped")
}

func redisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("Health Telemetry Ingestion Service")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("HTTP API: http://localhost%s\n", cfg.Server.Port)
	fmt.Printf("Background job threshold: %d samples\n", cfg.Server.BackgroundJobThreshold)
	fmt.Printf("Rate limit backend: %s\n", cfg.Auth.RateLimitBackend)
	fmt.Println("\nEndpoints:")
	fmt.Printf("  POST %s/v1/ingest                  - Ingest a health telemetry payload\n", cfg.Server.Port)
	fmt.Printf("  POST %s/v1/admin/reload-mappings   - Reload device-native identifier mappings\n", cfg.Server.Port)
	fmt.Printf("  GET  %s/health                     - Health check\n", cfg.Server.Port)
	fmt.Printf("  GET  %s/health/live                - Liveness probe\n", cfg.Server.Port)
	fmt.Printf("  GET  %s/metrics                    - Prometheus metrics\n", cfg.Server.Port)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Press Ctrl+C to gracefully shutdown")
	fmt.Println(strings.Repeat("=", 60) + "\n")
}
