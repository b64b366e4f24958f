package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/splitpay/backend/internal/config"
	"github.com/splitpay/backend/internal/domain"
	"github.com/splitpay/backend/internal/handler"
	appMiddleware "github.com/splitpay/backend/internal/middleware"
	"github.com/splitpay/backend/internal/repository"
	"github.com/splitpay/backend/internal/service"
	"github.com/splitpay/backend/pkg/payment"
)

func main() {
	// Logger first, so config errors are already structured
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	ctx := context.Background()

	// Database for the reporting read model
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	if err := repository.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Info("database connected & migrated")

	// Payment gateway collaborator. The sandbox approves everything; a
	// real provider adapter would be selected here.
	gateway := payment.NewSandboxGateway()

	planStore := repository.NewPlanStore()
	summaryRepo := repository.NewSummaryRepository(db)

	planSvc := service.NewPlanService(planStore, summaryRepo, gateway, domain.SystemClock(), log)
	reportingSvc := service.NewReportingService(summaryRepo)

	planHandler := handler.NewPlanHandler(planSvc)
	reportingHandler := handler.NewReportingHandler(reportingSvc)
	healthHandler := handler.NewHealthHandler(db)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger(log))
	r.Use(appMiddleware.NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS)*2).Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Check)

	// Authenticated API
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(cfg.JWTSecret))

		r.Post("/api/plans", planHandler.Create)
		r.Get("/api/plans/{id}", planHandler.Get)
		r.Get("/api/plans/{id}/installments/next", planHandler.NextInstallment)
		r.Post("/api/plans/{id}/payments", planHandler.MakePayment)
		r.Post("/api/plans/{id}/refunds", planHandler.ApplyRefund)

		r.Get("/api/reports/on-time-ratio", reportingHandler.OnTimeRatio)
		r.Get("/api/reports/outstanding-balance", reportingHandler.OutstandingBalance)
	})

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Infof("splitpay backend listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
