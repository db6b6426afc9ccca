package models

import (
	"time"
)

// Movie is served by the metadata API and never mutated here.
type Movie struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ReleaseDate string   `json:"release_date"`
	Runtime     int32    `json:"runtime"` // minutes
	Genres      []string `json:"genres"`
	GenreIDs    []int64  `json:"-"`
	Director    []string `json:"director"`
	Cast        []string `json:"cast"`
	PosterPath  string   `json:"poster_path"`
}

// MovieSummary is an entry of the trending, now playing and search lists.
type MovieSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	PosterPath  string `json:"poster_path"`
	ReleaseDate string `json:"release_date"`
}

type User struct {
	ID        int64
	Username  string
	Email     string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

var AnonymousUser = &User{}

func (u *User) IsAnonymous() bool {
	return u == nil || u == AnonymousUser || u.ID == 0
}

// Review is one user's rating and optional comment for one movie.
// At most one review exists per (UserID, MovieID).
type Review struct {
	ID        int64     `json:"id" db:"id"`
	MovieID   int64     `json:"movie_id" db:"movie_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"` // captured at write time
	Rating    int       `json:"rating" db:"rating"`
	Comment   *string   `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Helpful   int       `json:"helpful" db:"helpful"`
}

// ReviewView is a review annotated for the current viewer.
type ReviewView struct {
	Review
	IsOwnedByViewer bool `json:"is_owned_by_viewer"`
}

// ReviewWithMovie is a review enriched with the metadata needed by listing pages.
type ReviewWithMovie struct {
	Review
	MovieTitle string `json:"movie_title"`
	PosterPath string `json:"poster_path"`
}

type RatingBucket struct {
	Rating     int     `json:"rating"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// AggregateStats is derived from a review set and never persisted.
// Distribution lists rating 10 first.
type AggregateStats struct {
	AverageRating float64          `json:"average_rating"`
	ReviewCount   int              `json:"review_count"`
	Distribution  [10]RatingBucket `json:"distribution"`
}

// HomeStats feeds the home page cards.
type HomeStats struct {
	Total    int `json:"total"`
	Trending int `json:"trending"`
	Reviews  int `json:"reviews"`
}

// Recommendations are built from the genres of a user's highly rated movies.
type Recommendations struct {
	Results   []MovieSummary `json:"results"`
	TopGenres []string       `json:"top_genres"`
	Message   string         `json:"message,omitempty"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
