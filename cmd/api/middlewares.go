package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"ratemyreel/proj/internal/domain/models"
	"ratemyreel/proj/internal/services/auth"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

func (app *Application) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil && rec != http.ErrAbortHandler {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				w.Header().Set("Connection", "close")
				app.Http.ServerError(w, r, err, "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *Application) RateLimiter(next http.Handler) http.Handler {
	const op = "middlewares.RateLimiter"
	log := app.log.With("op", op)
	if !app.cfg.Limiter.Enabled {
		return next
	}
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	clients := make(map[string]*client)
	var mu sync.Mutex
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-app.done:
				return
			case <-ticker.C:
			}
			mu.Lock()
			for ip, client := range clients {
				if time.Since(client.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			app.Http.ServerError(w, r, err, "")
			return
		}
		mu.Lock()
		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(rate.Limit(app.cfg.Limiter.Rps), app.cfg.Limiter.Burst)}
			clients[ip] = c
		}
		c.lastSeen = time.Now()
		allowed := c.limiter.Allow()
		mu.Unlock()
		if !allowed {
			log.Warn("rate limit exceeded", "ip", ip)
			app.Http.Response(
				w, r,
				envelop{"error": "rate limit exceeded"},
				"Can't process request see an error below.",
				http.StatusTooManyRequests,
			)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type CtxKey string

const CtxKeyUser CtxKey = "user"

// parseUserID verifies the token signature and expiry and returns its "uid" claim.
func (app *Application) parseUserID(token string) (int64, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		return []byte(app.cfg.AppSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}
	uid, ok := claims["uid"].(float64)
	if !ok || uid < 1 {
		return 0, fmt.Errorf("%w: missing uid", jwt.ErrTokenInvalidClaims)
	}
	return int64(uid), nil
}

// Authenticate puts the requesting user into the context. Requests without
// credentials proceed as models.AnonymousUser.
func (app *Application) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middlewares.Authenticate"
		log := app.log.With("op", op)
		w.Header().Add("Vary", "Authorization")
		user := models.AnonymousUser

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			const bearerLength = len("Bearer ")
			if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) < bearerLength+1 {
				log.Warn("Invalid auth header")
				app.Http.BadRequest(w, r, "Invalid Authorization header, should be 'Bearer <token>'")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			userID, err := app.parseUserID(token)
			if err != nil {
				log.Info("Invalid or expired token", "err", err)
				app.Http.Unauthorized(w, r, "Invalid or expired token")
				return
			}
			user, err = app.Services.Auth.GetUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					log.Warn("user not found", "user_id", userID)
					app.Http.Unauthorized(w, r, "Invalid or expired token")
					return
				}
				app.Http.ServerError(w, r, err, "")
				return
			}
		}
		r = r.WithContext(context.WithValue(r.Context(), CtxKeyUser, user))
		next.ServeHTTP(w, r)
	})
}

func (app *Application) requireAuthenticatedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.currentUser(r).IsAnonymous() {
			app.Http.Unauthorized(w, r, "You must be authenticated to access this resource")
			return
		}
		next.ServeHTTP(w, r)
	})
}
