package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"microbiogeo/adapters/api"
	"microbiogeo/adapters/memory"
	"microbiogeo/adapters/postgres"
	"microbiogeo/adapters/rng"
	"microbiogeo/internal"
	"microbiogeo/internal/battery"
	"microbiogeo/internal/config"
	"microbiogeo/internal/errors"
	"microbiogeo/internal/migration"
	"microbiogeo/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects to PostgreSQL and brings the schema up to date
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	logger := internal.NewDefaultLogger().With("main")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo ports.ResultRepository
	if appConfig.Database.Enabled() {
		db, err := initDatabase(ctx, appConfig.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewResultRepository(db)
		logger.Info("persisting results to PostgreSQL")
	} else {
		repo = memory.NewResultRepository()
		logger.Warn("DATABASE_URL not set, results are kept in memory")
	}

	runner := battery.NewRunner(rng.NewStreamAdapter(), battery.Options{
		Workers: appConfig.Battery.Workers,
		Seed:    appConfig.Stats.Seed,
		Defaults: &battery.Defaults{
			Permutations:        appConfig.Stats.DefaultPermutations,
			Alpha:               appConfig.Stats.DefaultAlpha,
			MaxPermutations:     appConfig.Stats.MaxPermutations,
			MaxBioEnvCategories: appConfig.Stats.MaxBioEnvCategories,
		},
		Logger:     internal.NewDefaultLogger(),
		Repository: repo,
	})
	server := api.NewServer(runner, repo, internal.NewDefaultLogger())

	httpServer := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: server.Handler(),
	}

	go func() {
		logger.Info("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}
}
