package reviews

import (
	"errors"
	"fmt"
	"ratemyreel/proj/internal/domain/fields"
	"ratemyreel/proj/internal/storage"
)

var (
	ErrStoreUnavailable     = errors.New("review store unavailable")
	ErrValidation           = errors.New("validation failed")
	ErrForbidden            = errors.New("review belongs to another user")
	ErrNotFound             = errors.New("review not found")
	ErrUnauthenticated      = errors.New("you must be logged in to review movies")
	ErrConfirmationRequired = errors.New("deletion must be confirmed")
	ErrBusy                 = errors.New("another request is in progress")
	ErrNotEditing           = errors.New("no review is being edited")

	ErrInvalidRating = fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, fields.MinRating, fields.MaxRating)
)

const (
	MsgLoadFailed = "Failed to load reviews"
	MsgCreated    = "Thanks for your review!"
	MsgUpdated    = "Your review has been updated!"
	MsgEdited     = "Review updated"
	MsgDeleted    = "Review deleted"
)

// storeError keeps the store's own message while matching ErrStoreUnavailable.
type storeError struct {
	err error
}

func (e *storeError) Error() string {
	return e.err.Error()
}

func (e *storeError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.err}
}

func mapStorageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrForbidden):
		return ErrForbidden
	}
	return &storeError{err: err}
}
