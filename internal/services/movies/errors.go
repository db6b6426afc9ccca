package movies

import "errors"

var (
	ErrMovieNotFound       = errors.New("movie not found")
	ErrProviderUnavailable = errors.New("movie metadata provider is unavailable")
)
