package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (app *Application) routes() http.Handler {
	router := chi.NewRouter()
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		app.Http.NotFound(w, r, "Page not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		app.Http.Response(w, r, nil, "", http.StatusMethodNotAllowed)
	})
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(app.Recoverer)
	router.Use(app.RateLimiter)
	router.Use(app.Authenticate)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", app.healthcheck)
		r.Route("/movies", func(r chi.Router) {
			r.Get("/trending", app.trendingMovies)
			r.Get("/now-playing", app.nowPlayingMovies)
			r.Get("/search", app.searchMovies)
			r.Get("/stats", app.homeStats)
			r.With(app.requireAuthenticatedUser).Get("/recommendations", app.recommendations)
			r.Get("/{id}", app.getMovie)
			r.Route("/{id}/reviews", func(r chi.Router) {
				r.Get("/", app.listMovieReviews)
				r.Group(func(r chi.Router) {
					r.Use(app.requireAuthenticatedUser)
					r.Post("/", app.submitReview)
					r.Put("/{reviewID}", app.editReview)
					r.Delete("/{reviewID}", app.deleteReview)
				})
			})
		})
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/latest", app.latestReviews)
			r.With(app.requireAuthenticatedUser).Get("/mine", app.myReviews)
		})
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/login", app.login)
			r.Post("/signup", app.signup)
		})
	})
	return router
}
