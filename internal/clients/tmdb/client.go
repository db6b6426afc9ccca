package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"ratemyreel/proj/internal/domain/models"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	TrendingLimit  = 10
	CastLimit      = 10
)

var ErrNotFound = errors.New("tmdb: not found")

type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: %s responded with status %d", e.Path, e.Code)
}

type Client struct {
	log        *slog.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(log *slog.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		log:        log,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// HTTPClient exposes the underlying client so tests can attach a mock transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

type movieDetails struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int32   `json:"runtime"`
	PosterPath  string  `json:"poster_path"`
	Genres      []genre `json:"genres"`
	Credits     struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

type genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type movieList struct {
	Results []models.MovieSummary `json:"results"`
}

func (d *movieDetails) toModel() *models.Movie {
	movie := &models.Movie{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Overview,
		ReleaseDate: d.ReleaseDate,
		Runtime:     d.Runtime,
		PosterPath:  d.PosterPath,
		Genres:      make([]string, 0, len(d.Genres)),
		GenreIDs:    make([]int64, 0, len(d.Genres)),
		Director:    []string{},
		Cast:        make([]string, 0, min(len(d.Credits.Cast), CastLimit)),
	}
	for _, g := range d.Genres {
		movie.Genres = append(movie.Genres, g.Name)
		movie.GenreIDs = append(movie.GenreIDs, g.ID)
	}
	for _, c := range d.Credits.Cast {
		if len(movie.Cast) == CastLimit {
			break
		}
		movie.Cast = append(movie.Cast, c.Name)
	}
	for _, c := range d.Credits.Crew {
		if c.Job == "Director" {
			movie.Director = append(movie.Director, c.Name)
		}
	}
	return movie
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	const op = "tmdb.Client.get"
	log := c.log.With("op", op, "path", path)
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("request failed", "err", err)
		return fmt.Errorf("%s: executing request: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		log.Warn("unexpected status", "status", resp.StatusCode)
		return &StatusError{Code: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// Movie returns details of a movie with its directors and top billed cast.
func (c *Client) Movie(ctx context.Context, id int64) (*models.Movie, error) {
	var details movieDetails
	params := url.Values{"append_to_response": {"credits"}}
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), params, &details); err != nil {
		return nil, err
	}
	return details.toModel(), nil
}

func (c *Client) Trending(ctx context.Context) ([]models.MovieSummary, error) {
	var list movieList
	if err := c.get(ctx, "/trending/movie/day", url.Values{"language": {"en-US"}}, &list); err != nil {
		return nil, err
	}
	if len(list.Results) > TrendingLimit {
		list.Results = list.Results[:TrendingLimit]
	}
	return nonNil(list.Results), nil
}

func (c *Client) NowPlaying(ctx context.Context) ([]models.MovieSummary, error) {
	var list movieList
	params := url.Values{"language": {"en-US"}, "page": {"1"}}
	if err := c.get(ctx, "/movie/now_playing", params, &list); err != nil {
		return nil, err
	}
	return nonNil(list.Results), nil
}

func (c *Client) Search(ctx context.Context, query string) ([]models.MovieSummary, error) {
	var list movieList
	params := url.Values{"query": {query}, "include_adult": {"false"}, "language": {"en-US"}}
	if err := c.get(ctx, "/search/movie", params, &list); err != nil {
		return nil, err
	}
	return nonNil(list.Results), nil
}

// Discover lists popular movies belonging to any of the given genres.
func (c *Client) Discover(ctx context.Context, genreIDs []int64) ([]models.MovieSummary, error) {
	ids := make([]string, 0, len(genreIDs))
	for _, id := range genreIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	params := url.Values{
		"with_genres":   {strings.Join(ids, "|")},
		"sort_by":       {"popularity.desc"},
		"include_adult": {"false"},
		"language":      {"en-US"},
	}
	var list movieList
	if err := c.get(ctx, "/discover/movie", params, &list); err != nil {
		return nil, err
	}
	return nonNil(list.Results), nil
}

func nonNil(movies []models.MovieSummary) []models.MovieSummary {
	if movies == nil {
		return []models.MovieSummary{}
	}
	return movies
}
