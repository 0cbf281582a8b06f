package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/optiplus/clinic-api/internal/cache"
	"github.com/optiplus/clinic-api/internal/config"
	"github.com/optiplus/clinic-api/internal/handler/health"
	recordHandler "github.com/optiplus/clinic-api/internal/handler/record"
	"github.com/optiplus/clinic-api/internal/handler/ws"
	"github.com/optiplus/clinic-api/internal/hub"
	"github.com/optiplus/clinic-api/internal/middleware"
	"github.com/optiplus/clinic-api/internal/repository/postgres"
	"github.com/optiplus/clinic-api/internal/router"
	recordService "github.com/optiplus/clinic-api/internal/service/record"
	"github.com/optiplus/clinic-api/internal/service/workflow"
	"github.com/optiplus/clinic-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	patientRepo := postgres.NewPatientRepository(base)
	examRepo := postgres.NewExaminationRepository(base)
	saleRepo := postgres.NewSaleRepository(base)
	recordRepo := postgres.NewRecordRepository(base)

	// Initialize the shared workflow state
	m := metrics.NewMetrics("optiplus")
	connHub := hub.New()
	activeCache := cache.NewActiveExaminations()

	workflowSvc := workflow.NewService(patientRepo, examRepo, saleRepo, activeCache, connHub, m)
	if err := workflowSvc.Rebuild(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to rebuild active examinations")
	}
	recordSvc := recordService.NewService(recordRepo, patientRepo)

	// Initialize handlers
	healthH := health.NewHandler(db)
	recordH := recordHandler.NewHandler(recordSvc)
	wsH := ws.NewHandler(connHub, workflowSvc, m)

	// Setup router
	r := router.NewRouter(healthH, recordH, wsH, router.RouterConfig{
		RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:     cfg.RateLimit.Burst,
		Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig:    middleware.CORSConfig{AllowOrigins: cfg.CORS.AllowedOrigins},
		MetricsPrefix: "optiplus_http",
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
