package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sitevisit/report-server-go/internal/config"
	"github.com/sitevisit/report-server-go/internal/database"
	"github.com/sitevisit/report-server-go/internal/handler"
	"github.com/sitevisit/report-server-go/internal/jobs"
	"github.com/sitevisit/report-server-go/internal/middleware"
	"github.com/sitevisit/report-server-go/internal/pdf"
	"github.com/sitevisit/report-server-go/internal/redis"
	"github.com/sitevisit/report-server-go/internal/repository"
	"github.com/sitevisit/report-server-go/internal/service"
	"github.com/sitevisit/report-server-go/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	ledger := buildLedger(cfg)
	store := buildStorage(cfg)

	accessService := service.NewAccessService(ledger, log.Logger)
	visionService := service.NewVisionService(cfg.VisionAPIKey, cfg.VisionModel, cfg.VisionBaseURL, log.Logger)
	reportService := service.NewReportService(pdf.NewGenerator(log.Logger), store, log.Logger)
	feedbackService := service.NewFeedbackService(store, log.Logger)

	productService, err := service.NewProductService(cfg.ProductDataDir, store, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize product data index")
	}

	adminAuth := middleware.NewAdminAuthMiddleware(cfg.AdminAPIKey)
	bodyLimit := middleware.NewBodyLimitMiddleware(cfg.MaxBodyBytes)

	accessHandler := handler.NewAccessHandler(accessService)
	adminHandler := handler.NewAdminHandler(accessService, adminAuth.Handler)
	reportHandler := handler.NewReportHandler(visionService, reportService, productService, store)
	productHandler := handler.NewProductHandler(productService, adminAuth.Handler)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimit.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Post("/api/feedback", feedbackHandler.Submit)
	r.Mount("/api/access", accessHandler.Routes())
	r.Mount("/api/admin", adminHandler.Routes())
	reportHandler.Register(r)
	productHandler.Register(r)

	r.Get("/*", handler.NewSPAHandler(cfg.StaticDir).ServeHTTP)

	if cfg.RetentionDays > 0 {
		retentionJob := jobs.NewRetentionJob(store, cfg.Retention(), config.RetentionJobInterval)
		retentionJob.Start()
		defer retentionJob.Stop()
	}

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("ledger", cfg.LedgerBackend).Str("storage", cfg.StorageType).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func buildLedger(cfg *config.Config) repository.LedgerRepository {
	switch cfg.LedgerBackend {
	case "postgres":
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}

		store, err := repository.NewPostgresStore(ctx, db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize ledger schema")
		}
		log.Info().Msg("postgres ledger connected")
		return store

	case "redis":
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		log.Info().Msg("redis ledger connected")
		return repository.NewRedisStore(client)

	default:
		store, err := repository.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize ledger files")
		}
		log.Info().Str("dir", cfg.DataDir).Msg("file ledger initialized")
		return store
	}
}

func buildStorage(cfg *config.Config) storage.Store {
	if cfg.StorageType == "s3" {
		store, err := storage.NewS3Store(context.Background(), storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretAccessKey,
		}, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize s3 storage")
		}
		return store
	}

	store, err := storage.NewLocalStore(cfg.StorageDir, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize local storage")
	}
	return store
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
