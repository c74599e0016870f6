package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opd-claims/config"
	"opd-claims/handlers"
	"opd-claims/logger"
	"opd-claims/repository"
	"opd-claims/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	dotenv := config.LoadDotEnv()

	cfg, err := config.LoadSandbox()
	if err != nil {
		logger.GetLogger().Fatalw("Failed to load configuration", "error", err)
	}
	logger.SetLevel(cfg.LogLevel)
	log := logger.GetLogger()
	defer logger.Close()

	if !dotenv {
		log.Info("No .env file found, using environment variables")
	}
	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Initialize stores
	var stores repository.Stores
	if cfg.UsesDatabase() {
		pool, err := initPostgres(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatalw("Failed to initialize Postgres", "error", err)
		}
		defer pool.Close()
		stores = repository.NewPostgresStores(pool)
	} else {
		log.Info("DATABASE_URL not set, keeping sandbox data in memory")
		stores = repository.NewMemoryStores()
	}

	if cfg.SeedMembers {
		added, err := repository.Seed(ctx, stores.Members)
		if err != nil {
			log.Fatalw("Failed to seed members", "error", err)
		}
		log.Infow("Seeded test members", "added", added)
	}

	// Initialize storage
	documents, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		log.Fatalw("Failed to initialize storage", "error", err)
	}
	log.Infow("Storage initialized", "type", cfg.Storage.Type)

	router := handlers.NewRouter(handlers.RouterConfig{
		Stores:         stores,
		Storage:        documents,
		AllowedOrigins: cfg.AllowedOrigins,
		UploadBaseURL:  cfg.UploadBaseURL,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Sandbox starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down sandbox")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Forced shutdown", "error", err)
	}
}

func initPostgres(ctx context.Context, connString string, log *zap.SugaredLogger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := repository.CreateSchema(ctx, pool, nil); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("Postgres connection established")
	return pool, nil
}
