package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/config"
	"github.com/certready/certready-backend/internal/database"
	"github.com/certready/certready-backend/internal/handler"
	"github.com/certready/certready-backend/internal/logger"
	"github.com/certready/certready-backend/internal/repository"
	"github.com/certready/certready-backend/internal/router"
	"github.com/certready/certready-backend/internal/service"
	"github.com/certready/certready-backend/internal/validator"
	"github.com/certready/certready-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting CertReady Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	transactionRepo := repository.NewTransactionRepository(pool)
	grantRepo := repository.NewAccessGrantRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	participationRepo := repository.NewParticipationRepository(pool)
	trainingRepo := repository.NewTrainingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, rdb)
	entitlementService := service.NewEntitlementService(grantRepo, log)
	checkout := service.NewSnapCheckout(cfg.MidtransServerKey, cfg.MidtransProduction)
	billingService := service.NewBillingService(transactionRepo, productRepo, userRepo, grantRepo, checkout, rdb, log)
	examService := service.NewExamService(examRepo, cfg, log)
	sessionService := service.NewExamSessionService(participationRepo, examRepo, questionRepo, entitlementService, rdb, cfg, log)
	trainingService := service.NewTrainingService(trainingRepo, questionRepo, entitlementService, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Billing:  handler.NewBillingHandler(billingService, entitlementService),
		Exam:     handler.NewExamHandler(examService),
		Session:  handler.NewSessionHandler(sessionService),
		Training: handler.NewTrainingHandler(trainingService),
		Webhook:  handler.NewWebhookHandler(cfg, authService, billingService),
		WS:       handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		System:   handler.NewSystemHandler(rdb, sessionService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(pool, rdb, log)
	fraudWorker := worker.NewFraudWorker(pool, rdb, log)
	sweepWorker := worker.NewSweepWorker(sessionService, cfg.SweepInterval, log)

	go autosaveWorker.Start(workerCtx)
	go fraudWorker.Start(workerCtx)
	go sweepWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
