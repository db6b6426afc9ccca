package grpc

import (
	"context"
	"log/slog"
	"ratemyreel/proj/internal/domain/models"
	"ratemyreel/proj/internal/services/auth"
	"time"

	ssov1 "github.com/AlexeySHA256/protos/gen/go/sso"
	grpclogging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpcretry "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const timeParseLayout = "2006-01-02 15:04:05.999999 -0700 MST"

type Client struct {
	api   ssov1.AuthClient
	conn  *grpc.ClientConn
	log   *slog.Logger
	appId int32
}

/*
	New creates a new Client instance.

It takes a logger, the app id issued by the SSO, an address of the gRPC server,
a timeout for retry call, and a retries count as parameters.
*/
func New(
	log *slog.Logger,
	appId int32,
	addr string,
	timeout time.Duration,
	retriesCount int,
) (*Client, error) {
	retryOpts := []grpcretry.CallOption{
		grpcretry.WithPerRetryTimeout(timeout),
		grpcretry.WithMax(uint(retriesCount)),
		grpcretry.WithCodes(codes.Aborted, codes.DeadlineExceeded, codes.Unavailable),
	}
	logOpts := []grpclogging.Option{
		grpclogging.WithLogOnEvents(grpclogging.StartCall, grpclogging.FinishCall),
	}
	cc, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(
			grpcretry.UnaryClientInterceptor(retryOpts...),
			grpclogging.UnaryClientInterceptor(InterceptorLogger(log), logOpts...),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Client{
		api:   ssov1.NewAuthClient(cc),
		conn:  cc,
		log:   log,
		appId: appId,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// mapError translates SSO status codes into auth errors. fallback is used for codes
// whose meaning depends on the call.
func mapError(err error, fallback map[codes.Code]error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if mapped, ok := fallback[st.Code()]; ok {
		return mapped
	}
	switch st.Code() {
	case codes.NotFound:
		return auth.ErrUserNotFound
	case codes.InvalidArgument:
		return &auth.InvalidDataError{Msg: st.Message()}
	case codes.AlreadyExists:
		return auth.ErrUserAlreadyExists
	}
	return err
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthTokens, error) {
	const op = "grpc.Client.Login"
	log := c.log.With("op", op)
	resp, err := c.api.Login(ctx, &ssov1.LoginRequest{Email: email, Password: password, AppId: c.appId})
	if err != nil {
		log.Debug("Error", "errMsg", err.Error())
		return nil, mapError(err, map[codes.Code]error{
			codes.InvalidArgument: auth.ErrInvalidCredentials,
			codes.NotFound:        auth.ErrInvalidCredentials,
			codes.Unauthenticated: auth.ErrInvalidCredentials,
		})
	}
	return &models.AuthTokens{AccessToken: resp.GetAccessToken(), RefreshToken: resp.GetRefreshToken()}, nil
}

func (c *Client) Register(ctx context.Context, email, username, password string) (int64, error) {
	const op = "grpc.Client.Register"
	log := c.log.With("op", op)
	resp, err := c.api.Register(
		ctx,
		&ssov1.RegisterRequest{Email: email, Password: password, Username: username},
	)
	if err != nil {
		log.Debug("Error", "errMsg", err.Error())
		return 0, mapError(err, nil)
	}
	return resp.GetUserId(), nil
}

func (c *Client) GetUser(ctx context.Context, params auth.GetUserParams) (*models.User, error) {
	const op = "grpc.Client.GetUser"
	log := c.log.With("op", op)
	resp, err := c.api.GetUser(ctx, &ssov1.GetUserRequest{Id: params.ID, Email: params.Email, IsActive: params.IsActive})
	if err != nil {
		log.Debug("Error", "errMsg", err.Error())
		return nil, mapError(err, nil)
	}
	user := resp.GetUser()
	createdAt, err := time.Parse(timeParseLayout, user.GetCreatedAt())
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(timeParseLayout, user.GetUpdatedAt())
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        user.GetId(),
		Email:     user.GetEmail(),
		Username:  user.GetUsername(),
		Role:      user.GetRole(),
		IsActive:  user.GetIsActive(),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Adapter for grpclogging.Logger used to adapt it to slog.Logger
func InterceptorLogger(log *slog.Logger) grpclogging.Logger {
	return grpclogging.LoggerFunc(
		func(ctx context.Context, level grpclogging.Level, msg string, fields ...any) {
			log.Log(ctx, slog.Level(level), msg, fields...)
		},
	)
}
