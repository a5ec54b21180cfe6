package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/rideshare-auth/internal/account"
	"github.com/pribylovaa/rideshare-auth/internal/config"
	gwhttp "github.com/pribylovaa/rideshare-auth/internal/http"
	"github.com/pribylovaa/rideshare-auth/internal/http/handlers"
	"github.com/pribylovaa/rideshare-auth/internal/metrics"
	"github.com/pribylovaa/rideshare-auth/internal/session"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
	"github.com/pribylovaa/rideshare-auth/internal/storage/memory"
	"github.com/pribylovaa/rideshare-auth/internal/storage/mongo"
	"github.com/pribylovaa/rideshare-auth/internal/storage/postgres"
	"github.com/pribylovaa/rideshare-auth/internal/storage/redis"
	"github.com/pribylovaa/rideshare-auth/internal/sweeper"
	"github.com/pribylovaa/rideshare-auth/internal/token"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Подключение к хранилищу c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := openStorage(dbCtx, cfg)
	dbCancel()
	if err != nil {
		log.Error("storage_connect_failed", slog.String("driver", cfg.Storage.Driver), slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("storage_connected",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("token_driver", cfg.Storage.TokenDriver),
	)

	codec, err := token.New(cfg.Auth)
	if err != nil {
		log.Error("token_codec_failed", slog.String("err", err.Error()))
		str.Close()
		rootCancel()
		os.Exit(1)
	}

	rec := metrics.New(nil)

	sessions := session.New(str, codec, session.WithMetrics(rec))
	accounts := account.New(str, sessions)
	log.Info("service_initialized")

	// Фоновая очистка просроченных refresh-токенов.
	sweepCtx, sweepCancel := context.WithCancel(rootCtx)
	sweepDone := make(chan struct{})
	sw := sweeper.New(str, codec, sweeper.Options{
		Interval: cfg.Sweeper.Interval,
		Timeout:  cfg.Sweeper.Timeout,
		Logger:   log,
		Metrics:  rec,
	})
	go func() {
		defer close(sweepDone)
		sw.Run(sweepCtx)
	}()

	var ready int32 // 0 — not ready; 1 — ready
	httpAddr := cfg.HTTP.Addr()

	api := gwhttp.NewRouter(handlers.New(accounts, sessions), gwhttp.Options{
		Logger:      log,
		Timeout:     cfg.Timeouts.Service,
		Verifier:    codec,
		FrontendURL: cfg.HTTP.FrontendURL,
		RateLimit:   cfg.HTTP.RateLimit,
		RateWindow:  cfg.HTTP.RateWindow,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api)

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	atomic.StoreInt32(&ready, 1)

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serveErr:
		log.Error("http_serve_failed", slog.String("err", err.Error()))
	}

	// Снимаем ready до остановки сервера.
	atomic.StoreInt32(&ready, 0)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	} else {
		log.Info("http_stopped")
	}

	sweepCancel()
	<-sweepDone

	// Явная очистка перед выходом.
	shutdownCancel()
	rootCancel()
	str.Close()

	log.Info("service_stopped")
	os.Exit(0)
}

// openStorage открывает основное хранилище по cfg.Storage.Driver и, если задано,
// выносит refresh-токены в отдельное хранилище cfg.Storage.TokenDriver.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	const op = "main.openStorage"

	var base storage.Storage

	switch cfg.Storage.Driver {
	case config.DriverMongo:
		m, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		base = m
	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.DB.DatabaseURL); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		pg, err := postgres.New(ctx, cfg.DB.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		base = pg
	case config.DriverMemory:
		base = memory.New()
	default:
		return nil, fmt.Errorf("%s: unknown driver %q", op, cfg.Storage.Driver)
	}

	if cfg.Storage.TokenDriver != config.DriverRedis {
		return base, nil
	}

	rs, err := redis.New(ctx, cfg.Redis, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return storage.WithTokenStore(base, rs), nil
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
