package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/config"
	"github.com/stemsi/akademi-backend/internal/database"
	"github.com/stemsi/akademi-backend/internal/handler"
	"github.com/stemsi/akademi-backend/internal/logger"
	"github.com/stemsi/akademi-backend/internal/middleware"
	"github.com/stemsi/akademi-backend/internal/repository"
	"github.com/stemsi/akademi-backend/internal/repository/memory"
	"github.com/stemsi/akademi-backend/internal/router"
	"github.com/stemsi/akademi-backend/internal/scoring"
	"github.com/stemsi/akademi-backend/internal/seed"
	"github.com/stemsi/akademi-backend/internal/service"
	"github.com/stemsi/akademi-backend/internal/validator"
	"github.com/stemsi/akademi-backend/internal/worker"
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
		Str("log_level", cfg.LogLevel).
		Msg("Starting Akademi Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := handler.NewHealthHandler(log)

	// ─── Connect to Redis ──────────────────────────────────────────────
	// Optional on the memory store so the service runs standalone.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg, log)
		switch {
		case err == nil:
			rdb = client
			defer rdb.Close()
			health.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		case cfg.StoreDriver == config.StoreDriverMemory:
			log.Warn().Err(err).Msg("Redis unavailable, running without cache, queue and events")
		default:
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
	}

	// ─── Initialize Store ──────────────────────────────────────────────
	var store *repository.Store
	var mem *memory.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem = memory.NewStore()
		store = mem.Bundle()
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		store = repository.NewPostgresStore(pool)
		health.Register("postgres", pool.Ping)
	default:
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("Unknown STORE_DRIVER")
	}

	// ─── Honors Scale ──────────────────────────────────────────────────
	honors := scoring.DefaultHonorsScale()
	if cfg.HonorsScaleFile != "" {
		scale, err := scoring.LoadHonorsScale(cfg.HonorsScaleFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.HonorsScaleFile).Msg("Failed to load honors scale")
		}
		honors = scale
		log.Info().Int("tiers", len(honors.Tiers)).Msg("Honors scale loaded")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	var (
		publisher  service.EventPublisher
		subscriber service.EventSubscriber
		reissueQ   service.ReissueQueue
		attemptQ   worker.AttemptQueue
	)
	if rdb != nil {
		publisher = service.NewRedisEventPublisher(rdb)
		subscriber = service.NewRedisEventSubscriber(rdb)
		reissueQ = service.NewRedisReissueQueue(rdb)
		attemptQ = worker.NewRedisAttemptQueue(rdb)
	}

	authService := service.NewAuthService(cfg)
	catalog := service.NewExamCatalog(store.Exams, store.Questions, rdb, cfg.PayloadCacheTTL, log)
	ledger := service.NewAttemptLedger(store.Attempts)
	issuer := service.NewCertificateIssuer(store.Certificates, honors, publisher, log)
	guard := service.NewAccessGuard(catalog, ledger, issuer, store, reissueQ, log)

	if mem != nil {
		seedMemory(ctx, mem, store, catalog, authService, log)
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:        handler.NewExamHandler(guard, log),
		Certificate: handler.NewCertificateHandler(guard, log),
		WS:          handler.NewWSHandler(subscriber, log, cfg.AllowedOrigins),
		Health:      health,
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	certWorker := worker.NewCertificateWorker(guard, attemptQ, cfg.ReissueSweepEvery, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		certWorker.Start(workerCtx)
	}()

	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, time.Minute, middleware.ByUserOrIP)
	workers.Add(1)
	go func() {
		defer workers.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				submitLimiter.Cleanup(3 * time.Minute)
			}
		}
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, submitLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the re-issuance batch to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// seedMemory loads the demo course into the in-memory store and prints a
// token for the demo user.
func seedMemory(
	ctx context.Context,
	mem *memory.Store,
	store *repository.Store,
	catalog *service.ExamCatalog,
	authService *service.AuthService,
	log zerolog.Logger,
) {
	mem.PutCourse(seed.DemoCourse)
	mem.PutUser(seed.DemoUser)

	exam, _, err := seed.DemoExam(ctx, store.Exams, catalog, seed.DemoCourse.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed demo exam")
	}
	token, err := authService.GenerateToken(seed.DemoUser.ID, 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign demo token")
	}

	log.Info().
		Str("course_id", seed.DemoCourse.ID.String()).
		Str("exam_id", exam.ID.String()).
		Str("user_id", seed.DemoUser.ID).
		Str("token", token).
		Msg("Demo data loaded into memory store")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
