package movies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"ratemyreel/proj/internal/clients/tmdb"
	"ratemyreel/proj/internal/domain/models"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	keyTrending   = "trending"
	keyNowPlaying = "now_playing"
	keyStats      = "stats"
)

const (
	// HighRating is the lowest rating that counts towards recommendations.
	HighRating          = 8
	TopGenresLimit      = 3
	RecommendationLimit = 20

	MsgNoHighRated = "No high-rated movies yet"
	MsgNoGenres    = "No genres found for your high-rated movies"
)

type MovieProvider interface {
	Movie(ctx context.Context, id int64) (*models.Movie, error)
	Trending(ctx context.Context) ([]models.MovieSummary, error)
	NowPlaying(ctx context.Context) ([]models.MovieSummary, error)
	Search(ctx context.Context, query string) ([]models.MovieSummary, error)
	Discover(ctx context.Context, genreIDs []int64) ([]models.MovieSummary, error)
}

type ReviewCounter interface {
	Count(ctx context.Context) (int, error)
}

type MovieService struct {
	log      *slog.Logger
	provider MovieProvider
	reviews  ReviewCounter
	cache    *cache.Cache
}

func New(log *slog.Logger, provider MovieProvider, reviews ReviewCounter, ttl time.Duration) *MovieService {
	return &MovieService{
		log:      log,
		provider: provider,
		reviews:  reviews,
		cache:    cache.New(ttl, 2*ttl),
	}
}

func movieKey(id int64) string {
	return fmt.Sprintf("movie:%d", id)
}

func (s *MovieService) providerErr(log *slog.Logger, err error) error {
	if errors.Is(err, tmdb.ErrNotFound) {
		log.Info("movie not found")
		return ErrMovieNotFound
	}
	log.Error(err.Error())
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

func (s *MovieService) Get(ctx context.Context, id int64) (*models.Movie, error) {
	const op = "movies.MovieService.Get"
	log := s.log.With("op", op, "id", id)
	if cached, ok := s.cache.Get(movieKey(id)); ok {
		return cached.(*models.Movie), nil
	}
	movie, err := s.provider.Movie(ctx, id)
	if err != nil {
		return nil, s.providerErr(log, err)
	}
	s.cache.Set(movieKey(id), movie, cache.DefaultExpiration)
	return movie, nil
}

func (s *MovieService) cachedList(ctx context.Context, op, key string, fetch func(context.Context) ([]models.MovieSummary, error)) ([]models.MovieSummary, error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.MovieSummary), nil
	}
	movies, err := fetch(ctx)
	if err != nil {
		return nil, s.providerErr(s.log.With("op", op), err)
	}
	s.cache.Set(key, movies, cache.DefaultExpiration)
	return movies, nil
}

func (s *MovieService) Trending(ctx context.Context) ([]models.MovieSummary, error) {
	return s.cachedList(ctx, "movies.MovieService.Trending", keyTrending, s.provider.Trending)
}

func (s *MovieService) NowPlaying(ctx context.Context) ([]models.MovieSummary, error) {
	return s.cachedList(ctx, "movies.MovieService.NowPlaying", keyNowPlaying, s.provider.NowPlaying)
}

// Search is not cached. A blank query yields an empty list without a remote call.
func (s *MovieService) Search(ctx context.Context, query string) ([]models.MovieSummary, error) {
	const op = "movies.MovieService.Search"
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.MovieSummary{}, nil
	}
	movies, err := s.provider.Search(ctx, query)
	if err != nil {
		return nil, s.providerErr(s.log.With("op", op, "query", query), err)
	}
	return movies, nil
}

// Stats gathers the home page counters.
func (s *MovieService) Stats(ctx context.Context) (*models.HomeStats, error) {
	const op = "movies.MovieService.Stats"
	if cached, ok := s.cache.Get(keyStats); ok {
		return cached.(*models.HomeStats), nil
	}
	var stats models.HomeStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		playing, err := s.NowPlaying(gctx)
		stats.Total = len(playing)
		return err
	})
	g.Go(func() error {
		trending, err := s.Trending(gctx)
		stats.Trending = len(trending)
		return err
	})
	g.Go(func() error {
		count, err := s.reviews.Count(gctx)
		stats.Reviews = count
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.With("op", op).Error(err.Error())
		return nil, err
	}
	s.cache.Set(keyStats, &stats, cache.DefaultExpiration)
	return &stats, nil
}

// Warm fills the trending and now playing entries ahead of the first request.
func (s *MovieService) Warm(ctx context.Context) error {
	if _, err := s.Trending(ctx); err != nil {
		return err
	}
	_, err := s.NowPlaying(ctx)
	return err
}

// InvalidateStats is called after review writes so the reviews counter stays current.
func (s *MovieService) InvalidateStats() {
	s.cache.Delete(keyStats)
}

type genreCount struct {
	id    int64
	name  string
	count int
}

// Recommendations suggests popular movies from the genres the user rated highest.
// Movies the user already reviewed are left out.
func (s *MovieService) Recommendations(ctx context.Context, reviewed []models.Review) (*models.Recommendations, error) {
	const op = "movies.MovieService.Recommendations"
	log := s.log.With("op", op)
	empty := &models.Recommendations{Results: []models.MovieSummary{}, TopGenres: []string{}}

	seen := make(map[int64]struct{}, len(reviewed))
	var liked []int64
	for _, r := range reviewed {
		seen[r.MovieID] = struct{}{}
		if r.Rating >= HighRating {
			liked = append(liked, r.MovieID)
		}
	}
	if len(liked) == 0 {
		empty.Message = MsgNoHighRated
		return empty, nil
	}

	movies := make([]*models.Movie, len(liked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range liked {
		g.Go(func() error {
			movie, err := s.Get(gctx, id)
			if errors.Is(err, ErrMovieNotFound) {
				return nil
			}
			movies[i] = movie
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make(map[string]*genreCount)
	for _, movie := range movies {
		if movie == nil {
			continue
		}
		for i, name := range movie.Genres {
			if i >= len(movie.GenreIDs) {
				break
			}
			if c, ok := counts[name]; ok {
				c.count++
				continue
			}
			counts[name] = &genreCount{id: movie.GenreIDs[i], name: name, count: 1}
		}
	}
	if len(counts) == 0 {
		empty.Message = MsgNoGenres
		return empty, nil
	}
	ranked := make([]*genreCount, 0, len(counts))
	for _, c := range counts {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	ranked = ranked[:min(len(ranked), TopGenresLimit)]

	recs := &models.Recommendations{
		Results:   make([]models.MovieSummary, 0, RecommendationLimit),
		TopGenres: make([]string, 0, len(ranked)),
	}
	ids := make([]int64, 0, len(ranked))
	keyParts := make([]string, 0, len(ranked))
	for _, c := range ranked {
		recs.TopGenres = append(recs.TopGenres, c.name)
		ids = append(ids, c.id)
		keyParts = append(keyParts, strconv.FormatInt(c.id, 10))
	}
	log = log.With("genres", recs.TopGenres)

	discovered, err := s.cachedList(ctx, op, "discover:"+strings.Join(keyParts, "|"),
		func(ctx context.Context) ([]models.MovieSummary, error) {
			return s.provider.Discover(ctx, ids)
		})
	if err != nil {
		return nil, err
	}
	for _, m := range discovered {
		if len(recs.Results) == RecommendationLimit {
			break
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		recs.Results = append(recs.Results, m)
	}
	log.Debug("recommendations built", "count", len(recs.Results))
	return recs, nil
}
