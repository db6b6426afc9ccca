package memory

import (
	"context"
	"ratemyreel/proj/internal/domain/filters"
	"ratemyreel/proj/internal/domain/models"
	"ratemyreel/proj/internal/storage"
	"sort"
	"sync"
	"time"
)

type ownerKey struct {
	userID  int64
	movieID int64
}

// ReviewStore keeps reviews in process memory with the same uniqueness
// and ownership rules as the reviews table.
type ReviewStore struct {
	mu      sync.RWMutex
	nextID  int64
	reviews map[int64]*models.Review
	byOwner map[ownerKey]int64
	now     func() time.Time
}

func New() *ReviewStore {
	return &ReviewStore{
		reviews: make(map[int64]*models.Review),
		byOwner: make(map[ownerKey]int64),
		now:     time.Now,
	}
}

func copyReview(r *models.Review) models.Review {
	out := *r
	if r.Comment != nil {
		comment := *r.Comment
		out.Comment = &comment
	}
	return out
}

func newestFirst(reviews []models.Review) {
	sort.Slice(reviews, func(i, j int) bool {
		if reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].ID > reviews[j].ID
		}
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
}

func (s *ReviewStore) collect(ctx context.Context, match func(*models.Review) bool) ([]models.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Review, 0)
	for _, r := range s.reviews {
		if match(r) {
			out = append(out, copyReview(r))
		}
	}
	newestFirst(out)
	return out, nil
}

func (s *ReviewStore) ListForMovie(ctx context.Context, movieID int64) ([]models.Review, error) {
	return s.collect(ctx, func(r *models.Review) bool { return r.MovieID == movieID })
}

func (s *ReviewStore) FindOwn(ctx context.Context, movieID, userID int64) (*models.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOwner[ownerKey{userID: userID, movieID: movieID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	review := copyReview(s.reviews[id])
	return &review, nil
}

func (s *ReviewStore) Upsert(ctx context.Context, review *models.Review, resetHelpful bool) (*models.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey{userID: review.UserID, movieID: review.MovieID}
	if id, ok := s.byOwner[key]; ok {
		stored := s.reviews[id]
		stored.Rating = review.Rating
		stored.Comment = review.Comment
		if resetHelpful {
			stored.Helpful = 0
		}
		out := copyReview(stored)
		return &out, nil
	}
	s.nextID++
	stored := copyReview(review)
	stored.ID = s.nextID
	stored.CreatedAt = s.now().UTC()
	s.reviews[stored.ID] = &stored
	s.byOwner[key] = stored.ID
	out := copyReview(&stored)
	return &out, nil
}

// owned resolves a scoped mutation target. Caller holds s.mu.
func (s *ReviewStore) owned(reviewID, userID int64) (*models.Review, error) {
	stored, ok := s.reviews[reviewID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if stored.UserID != userID {
		return nil, storage.ErrForbidden
	}
	return stored, nil
}

func (s *ReviewStore) Update(ctx context.Context, reviewID, userID int64, rating int, comment *string) (*models.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.owned(reviewID, userID)
	if err != nil {
		return nil, err
	}
	stored.Rating = rating
	stored.Comment = comment
	out := copyReview(stored)
	return &out, nil
}

func (s *ReviewStore) Delete(ctx context.Context, reviewID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.owned(reviewID, userID)
	if err != nil {
		return err
	}
	delete(s.byOwner, ownerKey{userID: stored.UserID, movieID: stored.MovieID})
	delete(s.reviews, reviewID)
	return nil
}

func (s *ReviewStore) ListForUser(ctx context.Context, userID int64, f filters.Filters) ([]models.Review, error) {
	all, err := s.collect(ctx, func(r *models.Review) bool { return r.UserID == userID })
	if err != nil {
		return nil, err
	}
	return page(all, f.Offset(), f.Limit()), nil
}

func (s *ReviewStore) ListLatest(ctx context.Context, limit int) ([]models.Review, error) {
	all, err := s.collect(ctx, func(*models.Review) bool { return true })
	if err != nil {
		return nil, err
	}
	return page(all, 0, limit), nil
}

func (s *ReviewStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews), nil
}

func page(reviews []models.Review, offset, limit int) []models.Review {
	if offset >= len(reviews) {
		return []models.Review{}
	}
	end := offset + limit
	if limit <= 0 || end > len(reviews) {
		end = len(reviews)
	}
	return reviews[offset:end]
}
