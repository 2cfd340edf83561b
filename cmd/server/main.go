package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/config"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/database"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/handler"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/logger"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/repository"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/router"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/service"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/validator"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("timezone", cfg.Location.String()).
		Msg("Starting answergate API")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	progress := repository.NewProgressStore(rdb)

	// ─── Initialize Catalog ────────────────────────────────────────────
	var (
		catalog repository.Catalog
		workers []func(context.Context)
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		pg := repository.NewPostgresCatalog(pool)
		catalog = pg
		workers = append(workers, worker.NewSubmissionWorker(pg, rdb, log).Start)

	case config.StoreDriverSeed:
		seed, err := repository.LoadSeed(cfg.SeedFile, cfg.Location)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("Failed to load seed file")
		}
		if err := seed.HashPasswords(func(p string) (string, error) {
			return service.HashPassword(p, cfg.BcryptCost)
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to hash seed passwords")
		}
		catalog = repository.NewSeedCatalog(seed)
		log.Info().
			Int("sessions", len(seed.Sessions)).
			Int("tests", len(seed.Tests)).
			Int("candidates", len(seed.Candidates)).
			Msg("Seed catalog loaded")

	default:
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("Unknown STORE_DRIVER")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, catalog)
	takingTestService := service.NewTakingTestService(catalog, progress, service.TakingTestOptions{
		Location:         cfg.Location,
		Grace:            cfg.SubmitGrace,
		QueueSubmissions: cfg.StoreDriver == config.StoreDriverPostgres,
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, log),
		TakingTest:   handler.NewTakingTestHandler(takingTestService, log),
		WS:           handler.NewWSHandler(takingTestService, log, cfg.AllowedOrigins),
		AdminSession: handler.NewAdminSessionHandler(takingTestService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workersDone := make(chan struct{}, len(workers))
	for _, start := range workers {
		start := start
		go func() {
			start(workerCtx)
			workersDone <- struct{}{}
		}()
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for their queues to drain.
	workerCancel()
	for range workers {
		select {
		case <-workersDone:
		case <-time.After(10 * time.Second):
			log.Warn().Msg("Worker drain timed out")
		}
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
