package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	bootLog := logrus.New()
	config := LoadConfig(bootLog)

	log := NewLogger(config)
	log.Info("starting email verification service")

	if config.IsDevMode {
		log.Info("running in DEV MODE")
	} else {
		log.Info("running in PRODUCTION MODE")
	}

	if len(config.ExtraDisposableDomains) > 0 {
		ExtendDisposableRegistry(config.ExtraDisposableDomains)
		log.WithField("count", len(config.ExtraDisposableDomains)).Info("extended disposable domain registry")
	}

	var proxyConfig *ProxyConfig
	if config.SOCKS5Proxy != "" {
		proxyConfig = &ProxyConfig{
			Address:  config.SOCKS5Proxy,
			Username: config.ProxyUser,
			Password: config.ProxyPass,
		}
		log.WithField("proxy", config.SOCKS5Proxy).Info("SOCKS5 proxy configured for SMTP egress")
	} else if !config.IsDevMode {
		log.Warn("SOCKS5_PROXY not set in production mode, probing will egress directly")
	}

	log.WithField("hostname", config.WorkerHostname).Info("resolved outbound HELO hostname")

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	log.Info("connected to Redis")

	db, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open PostgreSQL connection")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping PostgreSQL")
	}
	log.Info("connected to PostgreSQL")

	store := NewPostgresVerdictStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("failed to ensure verification_cache schema")
	}

	memo := NewMXMemo(128)
	resolver := NewMXResolver(memo)
	prober := NewSMTPProber(config.WorkerHostname, proxyConfig)
	catchAll := NewCatchAllDetector(prober)
	pipeline := NewPipeline(resolver, prober, catchAll)

	orchestrator := NewRequestOrchestrator(pipeline, store, log)
	bulk := NewBulkExecutor(orchestrator)
	limiter := NewRateLimiter(redisClient, log)

	server := NewServer(orchestrator, bulk, limiter, log, "static")

	httpServer := &http.Server{
		Addr:         ":" + config.ServerPort,
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited cleanly")
}
