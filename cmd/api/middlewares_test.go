package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"ratemyreel/proj/internal/domain/models"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRequiredAuthenticatedUser(t *testing.T) {
	app := NewTestApplication(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	t.Run("authenticated", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request = request.WithContext(context.WithValue(request.Context(), CtxKeyUser, testUserU))
		app.requireAuthenticatedUser(next).ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
	t.Run("anonymous", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request = request.WithContext(context.WithValue(request.Context(), CtxKeyUser, models.AnonymousUser))
		app.requireAuthenticatedUser(next).ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
	t.Run("missing", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		app.requireAuthenticatedUser(next).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestAuthenticate(t *testing.T) {
	app := NewTestApplication(t)
	var seen *models.User
	handler := app.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = app.currentUser(r)
		w.WriteHeader(http.StatusOK)
	}))
	serve := func(header string) int {
		seen = nil
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			request.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	assert.Equal(t, http.StatusOK, serve(""))
	assert.True(t, seen.IsAnonymous())

	assert.Equal(t, http.StatusOK, serve("Bearer "+tokenFor(t, testUserV.ID, time.Hour)))
	require.NotNil(t, seen)
	assert.Equal(t, "victor", seen.Username)

	assert.Equal(t, http.StatusBadRequest, serve("Token abc"))
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+tokenFor(t, testUserU.ID, -time.Minute)))
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+tokenFor(t, 999, time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer not-a-jwt"))

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": 1}).SignedString([]byte("other"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+forged))

	noUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer "+noUID))
}

func TestRateLimiter(t *testing.T) {
	app := NewTestApplication(t)
	app.cfg.Limiter.Enabled = true
	app.cfg.Limiter.Rps = 1
	app.cfg.Limiter.Burst = 2
	handler := app.RateLimiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, recorder.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterStopsOnClose(t *testing.T) {
	app := NewTestApplication(t)
	app.cfg.Limiter.Enabled = true
	before := goleak.IgnoreCurrent()

	handler := app.RateLimiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	app.Close()
	app.Close()

	goleak.VerifyNone(t, before)
}

func TestRecoverer(t *testing.T) {
	app := NewTestApplication(t)
	handler := app.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something broke")
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
