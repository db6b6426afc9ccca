package fields

import (
	"fmt"
	"strings"
)

const (
	MinRating = 1
	MaxRating = 10
)

// Rating is a star rating in the closed range [MinRating, MaxRating].
type Rating int

func (r Rating) Valid() bool {
	return r >= MinRating && r <= MaxRating
}

func (r Rating) String() string {
	return fmt.Sprintf("%d/%d", int(r), MaxRating)
}

// NullableComment turns a blank comment into nil so it is stored as NULL.
func NullableComment(comment string) *string {
	if strings.TrimSpace(comment) == "" {
		return nil
	}
	return &comment
}
