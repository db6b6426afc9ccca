package main

import (
	"context"
	"errors"
	"net/http"
	"ratemyreel/proj/internal/domain/filters"
	"ratemyreel/proj/internal/domain/models"
	"ratemyreel/proj/internal/services/reviews"
	"strconv"

	"golang.org/x/sync/errgroup"
)

type reviewForm struct {
	Rating  int    `json:"rating" validate:"rating"`
	Comment string `json:"comment" validate:"max=2000" errorMsg:"Comment must not be longer than 2000 characters"`
}

type latestQuery struct {
	Limit int `schema:"limit" validate:"omitempty,gte=1,lte=50"`
}

// reviewsError converts a review workflow error into a response.
func (app *Application) reviewsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reviews.ErrValidation):
		app.Http.UnprocessableEntity(w, r, map[string]string{"rating": err.Error()})
	case errors.Is(err, reviews.ErrUnauthenticated):
		app.Http.Unauthorized(w, r, "You must be authenticated to access this resource")
	case errors.Is(err, reviews.ErrForbidden):
		app.Http.Forbidden(w, r, "You can only change your own reviews")
	case errors.Is(err, reviews.ErrNotFound):
		app.Http.NotFound(w, r, "Review not found")
	case errors.Is(err, reviews.ErrConfirmationRequired):
		app.Http.BadRequest(w, r, "Deleting a review must be confirmed with confirm=true")
	case errors.Is(err, reviews.ErrBusy):
		app.Http.Conflict(w, r, err.Error())
	case errors.Is(err, reviews.ErrStoreUnavailable):
		app.Http.ServiceUnavailable(w, r, err.Error())
	default:
		app.Http.ServerError(w, r, err, "")
	}
}

// loadSession builds the movie review workflow for the requesting user.
func (app *Application) loadSession(w http.ResponseWriter, r *http.Request) (*reviews.Session, bool) {
	movieID, ok := app.extractIDParam(w, r, "id", "movie")
	if !ok {
		return nil, false
	}
	session := app.Services.Reviews.NewSession(movieID, app.authContext(r))
	if err := session.Load(r.Context()); err != nil {
		app.Http.ServiceUnavailable(w, r, reviews.MsgLoadFailed)
		return nil, false
	}
	return session, true
}

func (app *Application) statsChanged() {
	if err := app.tasks.TryAdd("invalidate stats", app.Services.Movies.InvalidateStats); err != nil {
		app.Services.Movies.InvalidateStats()
	}
}

func (app *Application) listMovieReviews(w http.ResponseWriter, r *http.Request) {
	session, ok := app.loadSession(w, r)
	if !ok {
		return
	}
	app.Http.Ok(w, r, envelop{"reviews": session.Snapshot()}, "")
}

func (app *Application) submitReview(w http.ResponseWriter, r *http.Request) {
	var form reviewForm
	if !app.readAndValidate(w, r, &form) {
		return
	}
	movieID, ok := app.extractIDParam(w, r, "id", "movie")
	if !ok {
		return
	}
	session := app.Services.Reviews.NewSession(movieID, app.authContext(r))
	if err := session.Submit(r.Context(), form.Rating, form.Comment); err != nil {
		app.reviewsError(w, r, err)
		return
	}
	app.statsChanged()
	snap := session.Snapshot()
	if snap.Message == reviews.MsgCreated {
		app.Http.Created(w, r, envelop{"reviews": snap}, snap.Message)
		return
	}
	app.Http.Ok(w, r, envelop{"reviews": snap}, snap.Message)
}

func (app *Application) editReview(w http.ResponseWriter, r *http.Request) {
	var form reviewForm
	if !app.readAndValidate(w, r, &form) {
		return
	}
	reviewID, ok := app.extractIDParam(w, r, "reviewID", "review")
	if !ok {
		return
	}
	session, ok := app.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.StartEdit(reviewID); err != nil {
		app.reviewsError(w, r, err)
		return
	}
	if err := session.SetDraft(form.Rating, form.Comment); err != nil {
		app.reviewsError(w, r, err)
		return
	}
	if err := session.SaveEdit(r.Context()); err != nil {
		app.reviewsError(w, r, err)
		return
	}
	snap := session.Snapshot()
	app.Http.Ok(w, r, envelop{"reviews": snap}, snap.Message)
}

func (app *Application) deleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := app.extractIDParam(w, r, "reviewID", "review")
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	session, ok := app.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.Remove(r.Context(), reviewID, confirmed); err != nil {
		app.reviewsError(w, r, err)
		return
	}
	app.statsChanged()
	snap := session.Snapshot()
	app.Http.Ok(w, r, envelop{"reviews": snap}, snap.Message)
}

func (app *Application) myReviews(w http.ResponseWriter, r *http.Request) {
	var f filters.Filters
	if !app.decodeQuery(w, r, &f) {
		return
	}
	list, err := app.Services.Reviews.ListForUser(r.Context(), app.authContext(r), f)
	if err != nil {
		app.reviewsError(w, r, err)
		return
	}
	enriched := app.withMovies(r.Context(), list)
	app.Http.Ok(w, r, envelop{"reviews": enriched, "page": f.Page, "page_size": f.Limit()}, "")
}

func (app *Application) latestReviews(w http.ResponseWriter, r *http.Request) {
	var q latestQuery
	if !app.decodeQuery(w, r, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = app.cfg.Reviews.LatestLimit
	}
	list, err := app.Services.Reviews.ListLatest(r.Context(), q.Limit)
	if err != nil {
		app.reviewsError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"reviews": app.withMovies(r.Context(), list)}, "")
}

// withMovies attaches the title and poster of each reviewed movie. Metadata is
// fetched once per movie; a movie that cannot be fetched is left blank.
func (app *Application) withMovies(ctx context.Context, list []models.Review) []models.ReviewWithMovie {
	const op = "main.Application.withMovies"
	unique := make(map[int64]*models.Movie)
	for _, review := range list {
		unique[review.MovieID] = nil
	}
	ids := make([]int64, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}
	fetched := make([]*models.Movie, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			movie, err := app.Services.Movies.Get(gctx, id)
			if err != nil {
				app.log.With("op", op, "movie_id", id).Warn("movie metadata unavailable", "err", err)
				return nil
			}
			fetched[i] = movie
			return nil
		})
	}
	_ = g.Wait()
	for i, id := range ids {
		unique[id] = fetched[i]
	}

	out := make([]models.ReviewWithMovie, 0, len(list))
	for _, review := range list {
		item := models.ReviewWithMovie{Review: review}
		if movie := unique[review.MovieID]; movie != nil {
			item.MovieTitle = movie.Title
			item.PosterPath = movie.PosterPath
		}
		out = append(out, item)
	}
	return out
}
