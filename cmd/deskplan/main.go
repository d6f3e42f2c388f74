package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"deskplan/internal/api"
	"deskplan/internal/audit"
	"deskplan/internal/booking"
	"deskplan/internal/bot"
	"deskplan/internal/config"
	"deskplan/internal/events"
	"deskplan/internal/export"
	"deskplan/internal/google"
	"deskplan/internal/metrics"
	"deskplan/internal/session"
	"deskplan/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("No .env file found; using system environment")
	}

	cfg, err := config.Load(os.Getenv("DESKPLAN_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	store, closeStore, err := openStore(cfg, rdb, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("open store error")
	}
	defer closeStore()

	retryCfg := storage.RetryConfig{MaxRetries: cfg.Save.MaxRetries, RetryDelays: cfg.RetryDelays()}
	persisted := storage.NewRetryingStore(store, retryCfg, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	bus := events.NewEventBus()
	bus.OnError(func(ev events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})

	if cfg.Audit.Path != "" {
		journal, err := audit.OpenJournal(cfg.Audit.Path)
		if err != nil {
			logger.Fatal().Err(err).Msg("open audit journal error")
		}
		defer journal.Close()
		journal.Attach(bus)
	}

	svc := booking.NewService(persisted, bus, &logger)

	seedsFromFile := true
	seeds, err := config.LoadDesksConfig(cfg.Desks.SeedPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatal().Err(err).Str("path", cfg.Desks.SeedPath).Msg("invalid desks config")
		}
		logger.Warn().Str("path", cfg.Desks.SeedPath).Msg("desks config not found, using default desks")
		seeds = config.DefaultDesksConfig()
		seedsFromFile = false
	}
	logger.Info().Str("desks", seeds.String()).Msg("desks config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Init(ctx, seeds.ToDesks()); err != nil {
		logger.Fatal().Err(err).Msg("load bookings error")
	}

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if seedsFromFile {
		watcher, err := config.NewDesksWatcher(cfg.Desks.SeedPath, cfg.DeskWatchInterval(), &logger)
		if err != nil {
			logger.Error().Err(err).Msg("desks watcher error")
		} else {
			run(func() {
				watcher.Run(ctx, func(dc *config.DesksConfig) {
					added, err := svc.EnsureDesks(ctx, dc.ToDesks())
					if err != nil {
						logger.Error().Err(err).Msg("apply desks config error")
						return
					}
					logger.Info().Strs("added", added).Msg("desks config reloaded")
				})
			})
		}
	}

	if cfg.Sheets.Enabled {
		sheets, err := google.NewSheetsService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("google sheets error")
		}
		syncer := google.NewSyncer(sheets, svc, cfg.SheetsDebounce(), &logger)
		syncer.Attach(bus)
		syncer.Trigger()
		run(func() { syncer.Run(ctx) })
	}

	backup := storage.NewBackupService(store, storage.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		Interval:      cfg.BackupInterval(),
		StoragePath:   cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, &logger)
	run(func() { backup.Start(ctx) })

	exporter := export.NewService(export.Config{
		Dir:           cfg.Export.Dir,
		Interval:      cfg.ExportInterval(),
		ExportOnStart: cfg.Export.ExportOnStart,
	}, svc, nil, &logger)
	if cfg.Export.Enabled {
		exporter.Start()
		defer exporter.Stop()
	}

	run(func() { startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, store, rdb, &logger) })
	if cfg.Monitoring.PrometheusEnabled {
		run(func() { startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger) })
	}
	if cfg.Monitoring.GRPCHealthPort > 0 {
		run(func() { startGRPCHealthServer(ctx, cfg.Monitoring.GRPCHealthPort, &logger) })
	}

	if cfg.HTTP.Enabled {
		srv := api.NewHTTPServer(api.Config{
			Port:               cfg.HTTP.Port,
			RateLimitPerSecond: cfg.HTTP.RateLimitPerSecond,
			RateLimitBurst:     cfg.HTTP.RateLimitBurst,
		}, svc, exporter, &logger)
		run(func() {
			if err := srv.Start(); err != nil {
				logger.Error().Err(err).Msg("http api error")
			}
		})
		run(func() {
			<-ctx.Done()
			ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctxShutdown)
		})
	}

	if cfg.Telegram.Enabled {
		var repo session.StateRepository = session.NewMemoryStateRepository(cfg.SessionTTL())
		if rdb != nil {
			repo = session.NewFailoverStateRepository(session.NewRedisStateRepository(rdb, cfg.SessionTTL()), repo, &logger)
		}
		b, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.Debug, svc, session.NewService(repo, &logger), &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create bot error")
		}
		run(func() { b.Start(ctx) })
	}

	logger.Info().
		Str("backend", cfg.Storage.Backend).
		Bool("http", cfg.HTTP.Enabled).
		Bool("telegram", cfg.Telegram.Enabled).
		Msg("deskplan started")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	wg.Wait()
}

func openStore(cfg *config.Config, rdb *redis.Client, logger *zerolog.Logger) (storage.Store, func(), error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.BackendRedis:
		return storage.NewRedisStore(rdb, cfg.Storage.RedisKey, logger), noop, nil
	case config.BackendMemory:
		return storage.NewMemoryStore(), noop, nil
	default:
		s, err := storage.NewFileStore(cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}

func startHealthServer(ctx context.Context, port int, store storage.Store, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if p, ok := store.(storage.Pinger); ok {
			if err := p.Ping(ctxPing); err != nil {
				http.Error(w, "store not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

// startGRPCHealthServer exposes the standard grpc.health.v1 service for
// orchestrators that probe over gRPC.
func startGRPCHealthServer(ctx context.Context, port int, logger *zerolog.Logger) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Error().Err(err).Msg("grpc health listen error")
		return
	}

	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()
	if err := srv.Serve(lis); err != nil {
		logger.Error().Err(err).Msg("grpc health server error")
	}
}
