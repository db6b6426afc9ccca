package models

import (
	"context"
	"errors"
	"ratemyreel/proj/internal/domain/filters"
	"ratemyreel/proj/internal/domain/models"
	"ratemyreel/proj/internal/storage"
	"ratemyreel/proj/internal/storage/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reviewColumns = "id, movie_id, user_id, username, rating, comment, created_at, helpful"

type ReviewModel struct {
	DB *pgxpool.Pool
}

func (m *ReviewModel) collect(ctx context.Context, query string, args ...any) ([]models.Review, error) {
	rows, err := m.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	reviews, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Review])
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (m *ReviewModel) ListForMovie(ctx context.Context, movieID int64) ([]models.Review, error) {
	return m.collect(
		ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE movie_id = $1 ORDER BY created_at DESC, id DESC`,
		movieID,
	)
}

func (m *ReviewModel) FindOwn(ctx context.Context, movieID, userID int64) (*models.Review, error) {
	rows, _ := m.DB.Query(
		ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE movie_id = $1 AND user_id = $2`,
		movieID,
		userID,
	)
	review, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Review])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// Upsert writes by the (user_id, movie_id) key. On conflict only rating and comment
// change, plus helpful when resetHelpful is set; id and created_at are kept.
func (m *ReviewModel) Upsert(ctx context.Context, review *models.Review, resetHelpful bool) (*models.Review, error) {
	rows, _ := m.DB.Query(
		ctx,
		`INSERT INTO reviews (movie_id, user_id, username, rating, comment, helpful)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, movie_id) DO UPDATE
		SET rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			helpful = CASE WHEN $7::boolean THEN EXCLUDED.helpful ELSE reviews.helpful END
		RETURNING `+reviewColumns,
		review.MovieID,
		review.UserID,
		review.Username,
		review.Rating,
		review.Comment,
		review.Helpful,
		resetHelpful,
	)
	saved, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Review])
	if err != nil {
		var pgxErr *pgconn.PgError
		if errors.As(err, &pgxErr) && pgxErr.Code == postgres.ErrConflictCode {
			return nil, storage.ErrConflict
		}
		return nil, err
	}
	return &saved, nil
}

func (m *ReviewModel) Update(ctx context.Context, reviewID, userID int64, rating int, comment *string) (*models.Review, error) {
	rows, _ := m.DB.Query(
		ctx,
		`UPDATE reviews SET rating = $1, comment = $2
		WHERE id = $3 AND user_id = $4 RETURNING `+reviewColumns,
		rating,
		comment,
		reviewID,
		userID,
	)
	updated, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Review])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, m.missReason(ctx, reviewID)
		}
		return nil, err
	}
	return &updated, nil
}

func (m *ReviewModel) Delete(ctx context.Context, reviewID, userID int64) error {
	status, err := m.DB.Exec(ctx, "DELETE FROM reviews WHERE id = $1 AND user_id = $2", reviewID, userID)
	if err != nil {
		return err
	}
	if status.RowsAffected() == 0 {
		return m.missReason(ctx, reviewID)
	}
	return nil
}

// missReason tells apart a missing review from one owned by someone else
// after a scoped mutation touched no rows.
func (m *ReviewModel) missReason(ctx context.Context, reviewID int64) error {
	var exists bool
	err := m.DB.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM reviews WHERE id = $1)", reviewID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrForbidden
	}
	return storage.ErrNotFound
}

func (m *ReviewModel) ListForUser(ctx context.Context, userID int64, f filters.Filters) ([]models.Review, error) {
	return m.collect(
		ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID,
		f.Limit(),
		f.Offset(),
	)
}

func (m *ReviewModel) ListLatest(ctx context.Context, limit int) ([]models.Review, error) {
	return m.collect(
		ctx,
		`SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
}

func (m *ReviewModel) Count(ctx context.Context) (int, error) {
	var count int
	if err := m.DB.QueryRow(ctx, "SELECT count(*) FROM reviews").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
