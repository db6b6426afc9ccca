package reviews

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"ratemyreel/proj/internal/domain/models"
	"ratemyreel/proj/internal/storage/memory"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("connection refused")

// flakyStorage fails selected calls on demand. With block set, reads and
// upserts hang until the caller's context is done.
type flakyStorage struct {
	*memory.ReviewStore
	block      bool
	failList   bool
	failUpsert bool
	failUpdate bool
	failDelete bool
	upserts    int
	lists      int
}

func (f *flakyStorage) ListForMovie(ctx context.Context, movieID int64) ([]models.Review, error) {
	f.lists++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.failList {
		return nil, errBackendDown
	}
	return f.ReviewStore.ListForMovie(ctx, movieID)
}

func (f *flakyStorage) Upsert(ctx context.Context, review *models.Review, resetHelpful bool) (*models.Review, error) {
	f.upserts++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.failUpsert {
		return nil, errBackendDown
	}
	return f.ReviewStore.Upsert(ctx, review, resetHelpful)
}

func (f *flakyStorage) FindOwn(ctx context.Context, movieID, userID int64) (*models.Review, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.ReviewStore.FindOwn(ctx, movieID, userID)
}

func (f *flakyStorage) Update(ctx context.Context, reviewID, userID int64, rating int, comment *string) (*models.Review, error) {
	if f.failUpdate {
		return nil, errBackendDown
	}
	return f.ReviewStore.Update(ctx, reviewID, userID, rating, comment)
}

func (f *flakyStorage) Delete(ctx context.Context, reviewID, userID int64) error {
	if f.failDelete {
		return errBackendDown
	}
	return f.ReviewStore.Delete(ctx, reviewID, userID)
}

const movieM = int64(550)

var (
	userU = AuthContext{UserID: 1, Username: "ursula"}
	userV = AuthContext{UserID: 2, Username: "victor"}
)

func newTestService(t *testing.T) (*ReviewService, *flakyStorage) {
	t.Helper()
	store := &flakyStorage{ReviewStore: memory.New()}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, store, Options{RequestTimeout: time.Second, ResetHelpfulOnUpsert: true}), store
}

func TestSessionNoReviews(t *testing.T) {
	svc, _ := newTestService(t)
	session := svc.NewSession(movieM, userU)
	require.NoError(t, session.Load(context.Background()))

	snap := session.Snapshot()
	assert.Empty(t, snap.Reviews)
	assert.Zero(t, snap.Stats.AverageRating)
	assert.Zero(t, snap.Stats.ReviewCount)
	for _, b := range snap.Stats.Distribution {
		assert.Zero(t, b.Count)
		assert.Zero(t, b.Percentage)
	}
	assert.False(t, snap.HasOwnReview)
}

func TestSessionSubmitCreatesThenUpdates(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	session := svc.NewSession(movieM, userU)
	require.NoError(t, session.Load(ctx))

	require.NoError(t, session.Submit(ctx, 8, "great"))
	snap := session.Snapshot()
	assert.Equal(t, MsgCreated, snap.Message)
	assert.Equal(t, StateSucceeded.String(), snap.State)
	assert.True(t, snap.HasOwnReview)
	assert.True(t, snap.HasReviewed)
	require.Len(t, snap.Reviews, 1)
	created := snap.Reviews[0]
	assert.True(t, created.IsOwnedByViewer)
	assert.Equal(t, "ursula", created.Username)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, 8.0, snap.Stats.AverageRating)

	session.Acknowledge()
	assert.Equal(t, StateIdle.String(), session.Snapshot().State)
	assert.Empty(t, session.Snapshot().Message)

	require.NoError(t, session.Submit(ctx, 5, "actually mediocre"))
	snap = session.Snapshot()
	assert.Equal(t, MsgUpdated, snap.Message)
	require.Len(t, snap.Reviews, 1)
	updated := snap.Reviews[0]
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, 5, updated.Rating)
	require.NotNil(t, updated.Comment)
	assert.Equal(t, "actually mediocre", *updated.Comment)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSessionSubmitLocalValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	anonymous := svc.NewSession(movieM, AuthContext{})
	assert.ErrorIs(t, anonymous.Submit(ctx, 8, ""), ErrUnauthenticated)

	session := svc.NewSession(movieM, userU)
	err := session.Submit(ctx, 0, "no stars")
	assert.ErrorIs(t, err, ErrValidation)
	snap := session.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, StateIdle.String(), snap.State)
	assert.NotEmpty(t, snap.Error)

	assert.ErrorIs(t, session.Submit(ctx, 11, ""), ErrValidation)
	assert.Zero(t, store.upserts)
}

func TestSessionSubmitFailure(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	session := svc.NewSession(movieM, userU)
	require.NoError(t, session.Load(ctx))

	store.failUpsert = true
	err := session.Submit(ctx, 7, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	snap := session.Snapshot()
	assert.Equal(t, errBackendDown.Error(), snap.Error)
	assert.Equal(t, StateFailed.String(), snap.State)
	assert.False(t, snap.HasReviewed)
	assert.Empty(t, snap.Reviews)

	store.failUpsert = false
	require.NoError(t, session.Submit(ctx, 7, ""))
	snap = session.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Equal(t, MsgCreated, snap.Message)
}

func TestSessionLoadFailureKeepsList(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	session := svc.NewSession(movieM, userU)
	require.NoError(t, session.Submit(ctx, 9, ""))
	require.Len(t, session.Snapshot().Reviews, 1)

	store.failList = true
	err := session.Load(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	snap := session.Snapshot()
	assert.Equal(t, MsgLoadFailed, snap.Error)
	assert.Len(t, snap.Reviews, 1)
	assert.Equal(t, 1, snap.Stats.ReviewCount)
}

func TestSessionStoreTimeout(t *testing.T) {
	store := &flakyStorage{ReviewStore: memory.New()}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(log, store, Options{RequestTimeout: 20 * time.Millisecond, ResetHelpfulOnUpsert: true})
	ctx := context.Background()
	require.NoError(t, svc.NewSession(movieM, userV).Submit(ctx, 7, "seen it"))

	session := svc.NewSession(movieM, userU)
	require.NoError(t, session.Load(ctx))
	require.Len(t, session.Snapshot().Reviews, 1)

	store.block = true
	start := time.Now()

	err := session.Load(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	snap := session.Snapshot()
	assert.Equal(t, MsgLoadFailed, snap.Error)
	assert.Len(t, snap.Reviews, 1)

	err = session.Submit(ctx, 9, "never stored")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	snap = session.Snapshot()
	assert.Equal(t, StateFailed.String(), snap.State)
	assert.False(t, snap.HasReviewed)
	assert.False(t, snap.HasOwnReview)
	assert.Len(t, snap.Reviews, 1)

	store.block = false
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSessionEdit(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	session := svc.NewSession(movieM, userU)
	require.NoError(t, session.Submit(ctx, 6, "fine"))
	reviewID := session.Snapshot().Reviews[0].ID

	assert.ErrorIs(t, session.SaveEdit(ctx), ErrNotEditing)
	require.NoError(t, session.StartEdit(reviewID))
	snap := session.Snapshot()
	require.NotNil(t, snap.Editing)
	assert.Equal(t, Draft{ReviewID: reviewID, Rating: 6, Comment: "fine"}, *snap.Editing)

	require.NoError(t, session.SetDraft(0, "oops"))
	assert.ErrorIs(t, session.SaveEdit(ctx), ErrValidation)
	assert.NotNil(t, session.Snapshot().Editing)

	require.NoError(t, session.SetDraft(9, "grew on me"))
	store.failUpdate = true
	assert.ErrorIs(t, session.SaveEdit(ctx), ErrStoreUnavailable)
	snap = session.Snapshot()
	assert.NotNil(t, snap.Editing)
	assert.Equal(t, errBackendDown.Error(), snap.Error)
	assert.Equal(t, 6, snap.Reviews[0].Rating)

	store.failUpdate = false
	require.NoError(t, session.SaveEdit(ctx))
	snap = session.Snapshot()
	assert.Nil(t, snap.Editing)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 9, snap.Reviews[0].Rating)

	require.NoError(t, session.StartEdit(reviewID))
	session.CancelEdit()
	assert.Nil(t, session.Snapshot().Editing)
}

func TestSessionForeignReview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := svc.NewSession(movieM, userU)
	require.NoError(t, owner.Submit(ctx, 8, "mine"))
	reviewID := owner.Snapshot().Reviews[0].ID

	intruder := svc.NewSession(movieM, userV)
	require.NoError(t, intruder.Load(ctx))
	snap := intruder.Snapshot()
	assert.False(t, snap.HasOwnReview)
	assert.False(t, snap.Reviews[0].IsOwnedByViewer)

	assert.ErrorIs(t, intruder.StartEdit(reviewID), ErrForbidden)
	assert.ErrorIs(t, intruder.Remove(ctx, reviewID, true), ErrForbidden)

	// the store scoping holds even when the local hint is bypassed
	assert.ErrorIs(t, svc.Delete(ctx, reviewID, userV), ErrForbidden)
	_, err := svc.Update(ctx, reviewID, userV, 1, "")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, intruder.Load(ctx))
	snap = intruder.Snapshot()
	require.Len(t, snap.Reviews, 1)
	assert.Equal(t, reviewID, snap.Reviews[0].ID)
	assert.Equal(t, 8, snap.Reviews[0].Rating)

	anonymous := svc.NewSession(movieM, AuthContext{})
	require.NoError(t, anonymous.Load(ctx))
	assert.False(t, anonymous.Snapshot().HasOwnReview)
	assert.ErrorIs(t, anonymous.StartEdit(reviewID), ErrUnauthenticated)
}

func TestSessionRemove(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	session := svc.NewSession(movieM, userU)
	require.NoError(t, session.Submit(ctx, 4, ""))
	reviewID := session.Snapshot().Reviews[0].ID

	assert.ErrorIs(t, session.Remove(ctx, reviewID, false), ErrConfirmationRequired)
	assert.ErrorIs(t, session.Remove(ctx, reviewID+100, true), ErrNotFound)

	store.failDelete = true
	assert.ErrorIs(t, session.Remove(ctx, reviewID, true), ErrStoreUnavailable)
	assert.Len(t, session.Snapshot().Reviews, 1)

	store.failDelete = false
	require.NoError(t, session.Remove(ctx, reviewID, true))
	snap := session.Snapshot()
	assert.Empty(t, snap.Reviews)
	assert.False(t, snap.HasOwnReview)
	assert.Equal(t, MsgDeleted, snap.Message)
}

func TestSessionRejectsOverlappingMutation(t *testing.T) {
	svc, _ := newTestService(t)
	session := svc.NewSession(movieM, userU)
	require.NoError(t, session.begin())
	assert.ErrorIs(t, session.Submit(context.Background(), 5, ""), ErrBusy)
	assert.True(t, session.Snapshot().Loading)
	session.end()
	assert.False(t, session.Snapshot().Loading)
}

func TestServiceListLatestClampsLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for userID := int64(1); userID <= 3; userID++ {
		_, err := svc.Upsert(ctx, movieM, AuthContext{UserID: userID}, 7, "")
		require.NoError(t, err)
	}
	latest, err := svc.ListLatest(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, latest, 3)

	own, err := svc.FindOwn(ctx, movieM+1, userU)
	require.NoError(t, err)
	assert.Nil(t, own)
}
