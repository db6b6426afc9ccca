package auth

import "errors"

// InvalidDataError carries the SSO's message about rejected input.
type InvalidDataError struct {
	Msg string
}

func (e *InvalidDataError) Error() string {
	return e.Msg
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with that email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is not activated")
)
