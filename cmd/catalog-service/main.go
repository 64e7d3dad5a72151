package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/cache"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/config"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/service"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage/memory"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage/postgres"
	catalogrpc "github.com/pribylovaa/go-ecommerce-catalog/internal/transport/grpc"
	cataloghttp "github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const janitorPeriod = 30 * time.Minute

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting catalog-service", "env", cfg.Env, "storage", cfg.Storage.Driver)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	str, err := openStorage(rootCtx, cfg)
	if err != nil {
		log.Error("storage_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	log.Info("storage_initialized")

	srvc := service.New(str, *cfg)

	// Кэш отозванных токенов — опционален.
	if cfg.Redis.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.RedisURL, cfg.Redis.Prefix)
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if cerr := rc.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()

		srvc.SetRevocationCache(rc)
		log.Info("redis_connected")
	}

	// Фоновая очистка журнала отзыва.
	startLedgerJanitor(rootCtx, srvc, log, janitorPeriod, cfg.Auth.LedgerRetention)

	apiHandler := cataloghttp.NewRouter(srvc, cataloghttp.Options{
		Logger:         log,
		Timeout:        cfg.Timeouts.Service,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		TrustProxy:     cfg.RateLimit.TrustProxy,
	})

	var ready int32 // 0 — not ready; 1 — ready

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
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 2)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()

	// gRPC-листенер только для health-проб.
	var grpcSrv *catalogrpc.Server
	if cfg.GRPC.Enabled {
		grpcSrv = catalogrpc.NewServer(catalogrpc.Options{
			Logger:     log,
			Timeout:    cfg.Timeouts.Service,
			Reflection: cfg.Env == envLocal || cfg.Env == envDev,
			Metrics:    true,
		})

		grpcAddr := cfg.GRPC.Addr()
		gln, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Error("grpc_listen_failed", slog.String("addr", grpcAddr), slog.String("err", err.Error()))
			os.Exit(1)
		}

		go func() {
			if err := grpcSrv.Serve(gln); err != nil {
				serveErrCh <- err
			}
		}()

		grpcSrv.SetServing(true)
	}

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		log.Error("serve_failed", slog.String("err", err.Error()))
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.Shutdown(shutdownCtx)
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openStorage выбирает реализацию хранилища по конфигу.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	default:
		// Подключение к БД c таймаутом.
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pg, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
		if err != nil {
			return nil, err
		}

		return pg, nil
	}
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// startLedgerJanitor периодически удаляет из журнала отзыва записи о токенах,
// истёкших раньше now-retention. retention <= 0 — очистка выключена.
func startLedgerJanitor(ctx context.Context, svc *service.Service, log *slog.Logger, period, retention time.Duration) {
	if period <= 0 || retention <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := svc.PurgeExpiredRevocations(ctx, retention)
				if err != nil {
					log.Error("ledger_janitor_failed", slog.String("err", err.Error()))
					continue
				}
				if n > 0 {
					log.Info("ledger_janitor_purged", slog.Int64("rows", n))
				}
			}
		}
	}()
}
