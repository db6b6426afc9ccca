package auth

import (
	"context"
	"errors"
	"log/slog"
	"ratemyreel/proj/internal/domain/models"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

const DefaultUserCacheTTL = time.Minute

type GetUserParams struct {
	ID       int64
	Email    string
	IsActive bool
}

type SsoProvider interface {
	Register(ctx context.Context, email, username, password string) (int64, error)
	Login(ctx context.Context, email, password string) (*models.AuthTokens, error)
	GetUser(ctx context.Context, params GetUserParams) (*models.User, error)
}

type AuthService struct {
	log   *slog.Logger
	sso   SsoProvider
	users *cache.Cache
}

func New(log *slog.Logger, ssoProvider SsoProvider, userCacheTTL time.Duration) *AuthService {
	if userCacheTTL <= 0 {
		userCacheTTL = DefaultUserCacheTTL
	}
	return &AuthService{
		log:   log,
		sso:   ssoProvider,
		users: cache.New(userCacheTTL, 2*userCacheTTL),
	}
}

func (a *AuthService) Signup(ctx context.Context, email, username, password string) (int64, error) {
	const op = "auth.AuthService.Signup"
	log := a.log.With("op", op, "email", email)
	userID, err := a.sso.Register(ctx, email, username, password)
	if err != nil {
		var invalid *InvalidDataError
		if errors.Is(err, ErrUserAlreadyExists) || errors.As(err, &invalid) {
			log.Info(err.Error())
		} else {
			log.Error("Error calling Sso.Register", "errMsg", err.Error())
		}
		return 0, err
	}
	log.Info("user registered", "user_id", userID)
	return userID, nil
}

func (a *AuthService) Login(ctx context.Context, email, password string) (*models.AuthTokens, error) {
	const op = "auth.AuthService.Login"
	log := a.log.With("op", op, "email", email)
	tokens, err := a.sso.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.Info("invalid credentials")
		} else {
			log.Error("Error calling Sso.Login", "errMsg", err.Error())
		}
		return nil, err
	}
	return tokens, nil
}

// GetUser resolves the owner of an access token. Lookups are cached briefly so
// every authenticated request does not cost an SSO round trip.
func (a *AuthService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "auth.AuthService.GetUser"
	key := strconv.FormatInt(id, 10)
	if cached, ok := a.users.Get(key); ok {
		return cached.(*models.User), nil
	}
	user, err := a.sso.GetUser(ctx, GetUserParams{ID: id})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			a.log.With("op", op, "user_id", id).Error(err.Error())
		}
		return nil, err
	}
	a.users.Set(key, user, cache.DefaultExpiration)
	return user, nil
}
