package services

import (
	"log/slog"
	"ratemyreel/proj/internal/config"
	"ratemyreel/proj/internal/services/auth"
	"ratemyreel/proj/internal/services/movies"
	"ratemyreel/proj/internal/services/reviews"
)

type Services struct {
	Auth    *auth.AuthService
	Movies  *movies.MovieService
	Reviews *reviews.ReviewService
}

func New(
	log *slog.Logger,
	cfg *config.Config,
	reviewStorage reviews.ReviewStorage,
	sso auth.SsoProvider,
	movieProvider movies.MovieProvider,
) *Services {
	reviewService := reviews.New(log, reviewStorage, reviews.Options{
		RequestTimeout:       cfg.Reviews.RequestTimeout,
		ResetHelpfulOnUpsert: !cfg.Reviews.PreserveHelpfulOnUpsert,
	})
	log.Info("reviews configured",
		"request_timeout", cfg.Reviews.RequestTimeout,
		"preserve_helpful_on_upsert", cfg.Reviews.PreserveHelpfulOnUpsert,
	)
	return &Services{
		Auth:    auth.New(log, sso, auth.DefaultUserCacheTTL),
		Movies:  movies.New(log, movieProvider, reviewService, cfg.Cache.TTL),
		Reviews: reviewService,
	}
}
