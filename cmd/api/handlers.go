package main

import (
	"errors"
	"net/http"
	"ratemyreel/proj/internal/domain/filters"
	"ratemyreel/proj/internal/services/auth"
	"ratemyreel/proj/internal/services/movies"

	"github.com/go-chi/render"
)

func (app *Application) healthcheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, struct {
		Status  string `json:"status"`
		Debug   bool   `json:"debug"`
		Version string `json:"version"`
	}{
		Status:  "available",
		Debug:   app.cfg.Debug,
		Version: version,
	})
}

func (app *Application) moviesError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, movies.ErrMovieNotFound):
		app.Http.NotFound(w, r, "Movie not found")
	case errors.Is(err, movies.ErrProviderUnavailable):
		app.Http.BadGateway(w, r, "Movie metadata is temporarily unavailable")
	default:
		app.Http.ServerError(w, r, err, "")
	}
}

func (app *Application) getMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := app.extractIDParam(w, r, "id", "movie")
	if !ok {
		return
	}
	movie, err := app.Services.Movies.Get(r.Context(), id)
	if err != nil {
		app.moviesError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"movie": movie}, "")
}

func (app *Application) trendingMovies(w http.ResponseWriter, r *http.Request) {
	list, err := app.Services.Movies.Trending(r.Context())
	if err != nil {
		app.moviesError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"results": list}, "")
}

func (app *Application) nowPlayingMovies(w http.ResponseWriter, r *http.Request) {
	list, err := app.Services.Movies.NowPlaying(r.Context())
	if err != nil {
		app.moviesError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"results": list}, "")
}

type searchQuery struct {
	Query string `schema:"query" validate:"max=200"`
}

func (app *Application) searchMovies(w http.ResponseWriter, r *http.Request) {
	var q searchQuery
	if !app.decodeQuery(w, r, &q) {
		return
	}
	list, err := app.Services.Movies.Search(r.Context(), q.Query)
	if err != nil {
		app.moviesError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"results": list}, "")
}

func (app *Application) homeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := app.Services.Movies.Stats(r.Context())
	if err != nil {
		app.moviesError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"stats": stats}, "")
}

// recommendations are derived from the user's latest page of reviews.
func (app *Application) recommendations(w http.ResponseWriter, r *http.Request) {
	reviewed, err := app.Services.Reviews.ListForUser(r.Context(), app.authContext(r), filters.Filters{PageSize: filters.MaxPageSize})
	if err != nil {
		app.reviewsError(w, r, err)
		return
	}
	recs, err := app.Services.Movies.Recommendations(r.Context(), reviewed)
	if err != nil {
		app.moviesError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"results": recs.Results, "top_genres": recs.TopGenres}, recs.Message)
}

func (app *Application) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !app.readAndValidate(w, r, &req) {
		return
	}
	tokens, err := app.Services.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			app.Http.Unauthorized(w, r, err.Error())
			return
		}
		app.Http.ServerError(w, r, err, "")
		return
	}
	app.Http.Ok(w, r, envelop{"tokens": tokens}, "")
}

func (app *Application) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Username string `json:"username" validate:"required,alphanum,min=3,max=50"`
		Password string `json:"password" validate:"required,min=8" errorMsg:"Password must be at least 8 characters long"`
	}
	if !app.readAndValidate(w, r, &req) {
		return
	}
	userID, err := app.Services.Auth.Signup(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		var invalid *auth.InvalidDataError
		switch {
		case errors.Is(err, auth.ErrUserAlreadyExists):
			app.Http.Conflict(w, r, err.Error())
		case errors.As(err, &invalid):
			app.Http.UnprocessableEntity(w, r, map[string]string{"detail": invalid.Msg})
		default:
			app.Http.ServerError(w, r, err, "")
		}
		return
	}
	app.Http.Created(w, r, envelop{"user_id": userID}, "Account created")
}
