package reviews

import (
	"context"
	"errors"
	"log/slog"
	"ratemyreel/proj/internal/domain/fields"
	"ratemyreel/proj/internal/domain/models"
	"sync"
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

// Draft is the scratch copy of a review being edited.
type Draft struct {
	ReviewID int64  `json:"review_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

type Snapshot struct {
	MovieID      int64                 `json:"movie_id"`
	Reviews      []models.ReviewView   `json:"reviews"`
	Stats        models.AggregateStats `json:"stats"`
	HasOwnReview bool                  `json:"has_own_review"`
	HasReviewed  bool                  `json:"has_reviewed"`
	Editing      *Draft                `json:"editing,omitempty"`
	State        string                `json:"state"`
	Loading      bool                  `json:"loading"`
	Message      string                `json:"message,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// Session holds the review workflow state of one movie-detail view.
// Mutations are serialized: a second one while another is in flight fails with ErrBusy.
// The displayed list only changes after a successful reload.
type Session struct {
	svc     *ReviewService
	log     *slog.Logger
	movieID int64
	auth    AuthContext

	mu          sync.Mutex
	reviews     []models.Review
	stats       models.AggregateStats
	hasReviewed bool
	state       State
	busy        bool
	loads       int
	editing     *Draft
	message     string
	errMsg      string
}

func newSession(svc *ReviewService, log *slog.Logger, movieID int64, auth AuthContext) *Session {
	return &Session{
		svc:     svc,
		log:     log.With("movie_id", movieID, "user_id", auth.UserID),
		movieID: movieID,
		auth:    auth,
		reviews: []models.Review{},
		stats:   Aggregate(nil),
	}
}

// Load refreshes the review list. On failure the previous list is kept.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()

	reviews, err := s.svc.ListForMovie(ctx, s.movieID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads--
	if err != nil {
		s.errMsg = MsgLoadFailed
		return err
	}
	s.reviews = reviews
	s.stats = Aggregate(reviews)
	s.errMsg = ""
	return nil
}

// begin marks a mutation in flight. Callers must hold no lock.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
	return err
}

// Submit creates or updates the viewer's review of the movie.
func (s *Session) Submit(ctx context.Context, rating int, comment string) error {
	const op = "reviews.Session.Submit"
	log := s.log.With("op", op, "rating", rating)

	s.mu.Lock()
	s.message = ""
	s.errMsg = ""
	s.mu.Unlock()

	if !s.auth.Authenticated() {
		return s.fail(ErrUnauthenticated)
	}
	if !fields.Rating(rating).Valid() {
		return s.fail(ErrInvalidRating)
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	s.state = StateSubmitting
	s.mu.Unlock()

	// Only picks the confirmation wording; the upsert key decides the write.
	existing, err := s.svc.FindOwn(ctx, s.movieID, s.auth)
	if err != nil {
		log.Warn("existence check failed, assuming new review", "err", err)
	}
	isUpdate := existing != nil

	if _, err := s.svc.Upsert(ctx, s.movieID, s.auth, rating, comment); err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.errMsg = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateSucceeded
	s.hasReviewed = true
	if isUpdate {
		s.message = MsgUpdated
	} else {
		s.message = MsgCreated
	}
	s.mu.Unlock()

	if err := s.Load(ctx); err != nil {
		log.Warn("reload after submit failed", "err", err)
	}
	return nil
}

// Acknowledge returns a finished submission to Idle and clears its message.
func (s *Session) Acknowledge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSucceeded || s.state == StateFailed {
		s.state = StateIdle
		s.message = ""
		s.errMsg = ""
	}
}

// ownedReview looks the review up in the loaded list. Caller holds s.mu.
func (s *Session) ownedReview(reviewID int64) (models.Review, error) {
	for _, r := range s.reviews {
		if r.ID != reviewID {
			continue
		}
		if !IsOwnedBy(r, s.auth) {
			return r, ErrForbidden
		}
		return r, nil
	}
	return models.Review{}, ErrNotFound
}

func (s *Session) StartEdit(reviewID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.auth.Authenticated() {
		return ErrUnauthenticated
	}
	review, err := s.ownedReview(reviewID)
	if err != nil {
		return err
	}
	draft := &Draft{ReviewID: review.ID, Rating: review.Rating}
	if review.Comment != nil {
		draft.Comment = *review.Comment
	}
	s.editing = draft
	s.errMsg = ""
	return nil
}

func (s *Session) SetDraft(rating int, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return ErrNotEditing
	}
	s.editing.Rating = rating
	s.editing.Comment = comment
	return nil
}

func (s *Session) CancelEdit() {
	s.mu.Lock()
	s.editing = nil
	s.mu.Unlock()
}

// SaveEdit writes the draft. On failure the session stays in edit mode.
func (s *Session) SaveEdit(ctx context.Context) error {
	const op = "reviews.Session.SaveEdit"
	s.mu.Lock()
	if s.editing == nil {
		s.mu.Unlock()
		return ErrNotEditing
	}
	draft := *s.editing
	s.mu.Unlock()

	if !fields.Rating(draft.Rating).Valid() {
		return s.fail(ErrInvalidRating)
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if _, err := s.svc.Update(ctx, draft.ReviewID, s.auth, draft.Rating, draft.Comment); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.editing = nil
	s.message = MsgEdited
	s.errMsg = ""
	s.mu.Unlock()

	if err := s.Load(ctx); err != nil {
		s.log.Warn("reload after edit failed", "op", op, "err", err)
	}
	return nil
}

// Remove deletes one of the viewer's reviews once the user confirmed it.
func (s *Session) Remove(ctx context.Context, reviewID int64, confirmed bool) error {
	const op = "reviews.Session.Remove"
	s.mu.Lock()
	if !s.auth.Authenticated() {
		s.mu.Unlock()
		return ErrUnauthenticated
	}
	_, err := s.ownedReview(reviewID)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if err := s.svc.Delete(ctx, reviewID, s.auth); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.message = MsgDeleted
	s.errMsg = ""
	if s.editing != nil && s.editing.ReviewID == reviewID {
		s.editing = nil
	}
	s.mu.Unlock()

	if err := s.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("reload after delete failed", "op", op, "err", err)
	}
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		MovieID:      s.movieID,
		Reviews:      Annotate(s.reviews, s.auth),
		Stats:        s.stats,
		HasOwnReview: HasOwnReview(s.reviews, s.auth),
		State:        s.state.String(),
		Loading:      s.loads > 0 || s.busy,
		Message:      s.message,
		Error:        s.errMsg,
	}
	snap.HasReviewed = s.hasReviewed || snap.HasOwnReview
	if s.editing != nil {
		draft := *s.editing
		snap.Editing = &draft
	}
	return snap
}
