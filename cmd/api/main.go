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

	"github.com/jwalitptl/visit-api/internal/catalog"
	"github.com/jwalitptl/visit-api/internal/config"
	"github.com/jwalitptl/visit-api/internal/email"
	"github.com/jwalitptl/visit-api/internal/handler"
	catalogHandler "github.com/jwalitptl/visit-api/internal/handler/catalog"
	draftHandler "github.com/jwalitptl/visit-api/internal/handler/draft"
	patientHandler "github.com/jwalitptl/visit-api/internal/handler/patient"
	"github.com/jwalitptl/visit-api/internal/middleware"
	"github.com/jwalitptl/visit-api/internal/repository/postgres"
	"github.com/jwalitptl/visit-api/internal/router"
	patientService "github.com/jwalitptl/visit-api/internal/service/patient"
	visitService "github.com/jwalitptl/visit-api/internal/service/visit"
	"github.com/jwalitptl/visit-api/internal/visit"
	"github.com/jwalitptl/visit-api/pkg/logger"
	"github.com/jwalitptl/visit-api/pkg/metrics"
	"github.com/jwalitptl/visit-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	encryptor, err := security.NewAESEncryptor([]byte(cfg.Encryption.Key))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid encryption key")
	}

	notifier := email.Noop()
	if cfg.Email.Host != "" {
		notifier = email.NewSMTPService(cfg.Email)
	}

	// Repositories
	visitRepo := postgres.NewVisitRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	visitSvc := visitService.NewService(visitRepo, outboxRepo, encryptor, notifier, appLogger)
	patientSvc := patientService.NewService(patientRepo)
	catalogs := catalog.NewCachedResolver(catalogRepo, cfg.Catalog.CacheTTL)

	m := metrics.NewMetrics("visit_api", "api")

	// Draft session manager
	manager := visit.NewManager(visit.Deps{
		Patients:     patientSvc,
		Catalogs:     catalogs,
		Persistence:  visitSvc,
		Logger:       appLogger,
		Debounce:     cfg.Drafts.SearchDebounce,
		FetchTimeout: cfg.Drafts.FetchTimeout,
	}, cfg.Drafts.TTL, cfg.Drafts.CleanupInterval)

	// Handlers
	h := handler.NewHandler()
	draftH := draftHandler.NewHandler(manager, m)
	patientH := patientHandler.NewHandler(patientSvc, visitSvc)
	catalogH := catalogHandler.NewHandler(catalogs, m)

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	if len(cfg.CORS.AllowedMethods) > 0 {
		cors.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		cors.AllowHeaders = cfg.CORS.AllowedHeaders
	}

	r := router.NewRouter(router.Config{
		Session:          middleware.SessionConfig{Secret: cfg.Session.Secret},
		CORS:             cors,
		RequestTimeout:   cfg.Server.RequestTimeout,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		MetricsPrefix:    "visit_api",
	}, h, draftH, patientH, catalogH)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	appLogger.Info("Server stopped")
}
