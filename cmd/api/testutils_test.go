package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"ratemyreel/proj/internal/clients/tmdb"
	"ratemyreel/proj/internal/config"
	"ratemyreel/proj/internal/domain/models"
	"ratemyreel/proj/internal/lib/logger"
	"ratemyreel/proj/internal/services"
	"ratemyreel/proj/internal/services/auth"
	"ratemyreel/proj/internal/storage/memory"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var (
	testUserU = &models.User{ID: 1, Username: "ursula", Email: "u@example.com", IsActive: true}
	testUserV = &models.User{ID: 2, Username: "victor", Email: "v@example.com", IsActive: true}
)

type fakeSso struct {
	users map[int64]*models.User
}

func (f *fakeSso) Register(context.Context, string, string, string) (int64, error) {
	return 0, auth.ErrUserAlreadyExists
}

func (f *fakeSso) Login(_ context.Context, email, password string) (*models.AuthTokens, error) {
	if password != "correct horse" {
		return nil, auth.ErrInvalidCredentials
	}
	return &models.AuthTokens{AccessToken: "token-for-" + email}, nil
}

func (f *fakeSso) GetUser(_ context.Context, params auth.GetUserParams) (*models.User, error) {
	user, ok := f.users[params.ID]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return user, nil
}

type fakeMovies struct{}

func (fakeMovies) Movie(_ context.Context, id int64) (*models.Movie, error) {
	if id == 404 {
		return nil, tmdb.ErrNotFound
	}
	movie := &models.Movie{ID: id, Title: fmt.Sprintf("Movie %d", id), PosterPath: "/poster.jpg"}
	if id%2 == 0 {
		movie.Genres, movie.GenreIDs = []string{"Drama"}, []int64{18}
	} else {
		movie.Genres, movie.GenreIDs = []string{"Comedy"}, []int64{35}
	}
	return movie, nil
}

func (fakeMovies) Trending(context.Context) ([]models.MovieSummary, error) {
	return []models.MovieSummary{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}, nil
}

func (fakeMovies) NowPlaying(context.Context) ([]models.MovieSummary, error) {
	return []models.MovieSummary{{ID: 3, Title: "C"}}, nil
}

func (fakeMovies) Search(_ context.Context, query string) ([]models.MovieSummary, error) {
	return []models.MovieSummary{{ID: 4, Title: query}}, nil
}

func (fakeMovies) Discover(_ context.Context, genreIDs []int64) ([]models.MovieSummary, error) {
	list := []models.MovieSummary{{ID: 550, Title: "Movie 550"}}
	for _, id := range genreIDs {
		list = append(list, models.MovieSummary{ID: 1000 + id, Title: fmt.Sprintf("Genre %d pick", id)})
	}
	return list, nil
}

// inlineTasks runs tasks synchronously so tests observe their effects.
type inlineTasks struct{}

func (inlineTasks) TryAdd(_ string, task func()) error {
	task()
	return nil
}

func NewTestApplication(t *testing.T) *Application {
	t.Helper()
	cfg := &config.Config{
		AppSecret: testSecret,
		Reviews: config.Reviews{
			RequestTimeout: time.Second,
			LatestLimit:    20,
		},
		Cache: config.Cache{TTL: time.Minute},
	}
	log := logger.Discard()
	sso := &fakeSso{users: map[int64]*models.User{testUserU.ID: testUserU, testUserV.ID: testUserV}}
	svcs := services.New(log, cfg, memory.New(), sso, fakeMovies{})
	app := NewApplication(cfg, log, svcs, inlineTasks{})
	t.Cleanup(app.Close)
	return app
}

func tokenFor(t *testing.T, userID int64, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": userID,
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type testResponse struct {
	Code    int
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, handler http.Handler, method, target string, user *models.User, body any) testResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, user.ID, time.Hour))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := testResponse{Code: rec.Code}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func decodeData[T any](t *testing.T, resp testResponse, key string) T {
	t.Helper()
	var v T
	raw, ok := resp.Data[key]
	require.True(t, ok, "missing data key %q", key)
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
