package reviews

import (
	"context"
	"errors"
	"log/slog"
	"ratemyreel/proj/internal/domain/fields"
	"ratemyreel/proj/internal/domain/filters"
	"ratemyreel/proj/internal/domain/models"
	"ratemyreel/proj/internal/storage"
	"time"
)

const (
	DefaultLatestLimit = 20
	MaxLatestLimit     = 50
)

type ReviewStorage interface {
	ListForMovie(ctx context.Context, movieID int64) ([]models.Review, error)
	FindOwn(ctx context.Context, movieID, userID int64) (*models.Review, error)
	Upsert(ctx context.Context, review *models.Review, resetHelpful bool) (*models.Review, error)
	Update(ctx context.Context, reviewID, userID int64, rating int, comment *string) (*models.Review, error)
	Delete(ctx context.Context, reviewID, userID int64) error
	ListForUser(ctx context.Context, userID int64, filters filters.Filters) ([]models.Review, error)
	ListLatest(ctx context.Context, limit int) ([]models.Review, error)
	Count(ctx context.Context) (int, error)
}

type Options struct {
	// RequestTimeout bounds every store call. Zero disables the bound.
	RequestTimeout time.Duration
	// ResetHelpfulOnUpsert zeroes the helpful counter when a review is resubmitted.
	ResetHelpfulOnUpsert bool
}

type ReviewService struct {
	log     *slog.Logger
	storage ReviewStorage
	opts    Options
}

func New(log *slog.Logger, storage ReviewStorage, opts Options) *ReviewService {
	return &ReviewService{
		log:     log,
		storage: storage,
		opts:    opts,
	}
}

func (s *ReviewService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.RequestTimeout)
}

func (s *ReviewService) ListForMovie(ctx context.Context, movieID int64) ([]models.Review, error) {
	const op = "reviews.ReviewService.ListForMovie"
	log := s.log.With("op", op, "movie_id", movieID)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	reviews, err := s.storage.ListForMovie(ctx, movieID)
	if err != nil {
		log.Error(err.Error())
		return nil, &storeError{err: err}
	}
	return reviews, nil
}

// FindOwn returns nil without error when the viewer has not reviewed the movie.
func (s *ReviewService) FindOwn(ctx context.Context, movieID int64, auth AuthContext) (*models.Review, error) {
	const op = "reviews.ReviewService.FindOwn"
	log := s.log.With("op", op, "movie_id", movieID, "user_id", auth.UserID)
	if !auth.Authenticated() {
		return nil, ErrUnauthenticated
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	review, err := s.storage.FindOwn(ctx, movieID, auth.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		log.Error(err.Error())
		return nil, &storeError{err: err}
	}
	return review, nil
}

func (s *ReviewService) Upsert(ctx context.Context, movieID int64, auth AuthContext, rating int, comment string) (*models.Review, error) {
	const op = "reviews.ReviewService.Upsert"
	log := s.log.With("op", op, "movie_id", movieID, "user_id", auth.UserID, "rating", rating)
	if !auth.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !fields.Rating(rating).Valid() {
		return nil, ErrInvalidRating
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	review, err := s.storage.Upsert(ctx, &models.Review{
		MovieID:  movieID,
		UserID:   auth.UserID,
		Username: auth.Username,
		Rating:   rating,
		Comment:  fields.NullableComment(comment),
		Helpful:  0,
	}, s.opts.ResetHelpfulOnUpsert)
	if err != nil {
		log.Error(err.Error())
		return nil, mapStorageErr(err)
	}
	log.Info("review saved", "review_id", review.ID)
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, reviewID int64, auth AuthContext, rating int, comment string) (*models.Review, error) {
	const op = "reviews.ReviewService.Update"
	log := s.log.With("op", op, "review_id", reviewID, "user_id", auth.UserID, "rating", rating)
	if !auth.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !fields.Rating(rating).Valid() {
		return nil, ErrInvalidRating
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	review, err := s.storage.Update(ctx, reviewID, auth.UserID, rating, fields.NullableComment(comment))
	if err != nil {
		err = mapStorageErr(err)
		switch {
		case errors.Is(err, ErrForbidden):
			log.Warn("attempt to edit review of another user")
		case errors.Is(err, ErrNotFound):
			log.Info("review not found")
		default:
			log.Error(err.Error())
		}
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Delete(ctx context.Context, reviewID int64, auth AuthContext) error {
	const op = "reviews.ReviewService.Delete"
	log := s.log.With("op", op, "review_id", reviewID, "user_id", auth.UserID)
	if !auth.Authenticated() {
		return ErrUnauthenticated
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.storage.Delete(ctx, reviewID, auth.UserID); err != nil {
		err = mapStorageErr(err)
		switch {
		case errors.Is(err, ErrForbidden):
			log.Warn("attempt to delete review of another user")
		case errors.Is(err, ErrNotFound):
			log.Info("review not found")
		default:
			log.Error(err.Error())
		}
		return err
	}
	log.Info("review deleted")
	return nil
}

func (s *ReviewService) ListForUser(ctx context.Context, auth AuthContext, f filters.Filters) ([]models.Review, error) {
	const op = "reviews.ReviewService.ListForUser"
	log := s.log.With("op", op, "user_id", auth.UserID)
	if !auth.Authenticated() {
		return nil, ErrUnauthenticated
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	reviews, err := s.storage.ListForUser(ctx, auth.UserID, f)
	if err != nil {
		log.Error(err.Error())
		return nil, &storeError{err: err}
	}
	return reviews, nil
}

func (s *ReviewService) ListLatest(ctx context.Context, limit int) ([]models.Review, error) {
	const op = "reviews.ReviewService.ListLatest"
	log := s.log.With("op", op, "limit", limit)
	switch {
	case limit <= 0:
		limit = DefaultLatestLimit
	case limit > MaxLatestLimit:
		limit = MaxLatestLimit
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	reviews, err := s.storage.ListLatest(ctx, limit)
	if err != nil {
		log.Error(err.Error())
		return nil, &storeError{err: err}
	}
	return reviews, nil
}

func (s *ReviewService) Count(ctx context.Context) (int, error) {
	const op = "reviews.ReviewService.Count"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	count, err := s.storage.Count(ctx)
	if err != nil {
		s.log.With("op", op).Error(err.Error())
		return 0, &storeError{err: err}
	}
	return count, nil
}

// NewSession starts a review workflow for one movie as seen by one viewer.
func (s *ReviewService) NewSession(movieID int64, auth AuthContext) *Session {
	return newSession(s, s.log, movieID, auth)
}
