package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"ratemyreel/proj/internal/api/tasks"
	"ratemyreel/proj/internal/clients/sso/grpc"
	"ratemyreel/proj/internal/clients/tmdb"
	"ratemyreel/proj/internal/config"
	"ratemyreel/proj/internal/lib/logger"
	"ratemyreel/proj/internal/services"
	"ratemyreel/proj/internal/services/reviews"
	"ratemyreel/proj/internal/storage/memory"
	"ratemyreel/proj/internal/storage/postgres"
	"ratemyreel/proj/internal/storage/postgres/models"
	"time"

	"github.com/joho/godotenv"
)

const version = "1.0.0"

func main() {
	cfgPath := flag.String("config", "config/local.yml", "path to config file")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	cfg := config.MustLoad(*cfgPath)
	log := logger.SetupLogger(cfg.Debug)

	reviewStorage, closeStorage := mustOpenStorage(log, cfg)
	defer closeStorage()

	sso, err := grpc.New(
		log,
		cfg.AppID,
		cfg.Clients.SSO.Addr,
		cfg.Clients.SSO.RetryTimeout,
		cfg.Clients.SSO.RetriesCount,
	)
	if err != nil {
		panic(err)
	}
	defer sso.Close()
	tmdbClient := tmdb.New(log, cfg.Clients.TMDB.BaseURL, cfg.Clients.TMDB.APIKey, cfg.Clients.TMDB.Timeout)

	bgTasks := tasks.New(log, 3, 100)
	bgTasks.Run()
	svcs := services.New(log, cfg, reviewStorage, sso, tmdbClient)
	bgTasks.Add("warm movie cache", func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Clients.TMDB.Timeout*2)
		defer cancel()
		if err := svcs.Movies.Warm(ctx); err != nil {
			log.Warn("movie cache warm up failed", "err", err)
		}
	})

	app := NewApplication(cfg, log, svcs, bgTasks)
	serveErr := app.serve()
	app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := bgTasks.Shutdown(ctx); err != nil {
		log.Error("background tasks did not stop", "err", err)
	}
	if serveErr != nil {
		log.Error("shutting down the server", "reason", serveErr.Error())
		os.Exit(1)
	}
}

func mustOpenStorage(log *slog.Logger, cfg *config.Config) (reviews.ReviewStorage, func()) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory review storage, reviews are lost on restart")
		return memory.New(), func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	storage, err := postgres.New(ctx, cfg.DB.Dsn, cfg.DB.MaxConns, cfg.DB.MaxConnIdleTime)
	if err != nil {
		panic(err)
	}
	log.Info("database connection established")
	if !cfg.DB.SkipMigrations {
		if err := storage.Migrate(ctx); err != nil {
			panic(err)
		}
		log.Info("database migrations applied")
	}
	return models.New(storage).Review, storage.Close
}
