package reviews

import "ratemyreel/proj/internal/domain/models"

// AuthContext identifies the viewer for the lifetime of a session.
// The zero value is an anonymous viewer.
type AuthContext struct {
	UserID   int64
	Username string
}

func AuthFromUser(user *models.User) AuthContext {
	if user.IsAnonymous() {
		return AuthContext{}
	}
	return AuthContext{UserID: user.ID, Username: user.Username}
}

func (a AuthContext) Authenticated() bool {
	return a.UserID != 0
}

// IsOwnedBy only gates edit/delete affordances. The store enforces ownership.
func IsOwnedBy(review models.Review, auth AuthContext) bool {
	return auth.Authenticated() && review.UserID == auth.UserID
}

func HasOwnReview(reviews []models.Review, auth AuthContext) bool {
	for _, r := range reviews {
		if IsOwnedBy(r, auth) {
			return true
		}
	}
	return false
}

func Annotate(reviews []models.Review, auth AuthContext) []models.ReviewView {
	views := make([]models.ReviewView, 0, len(reviews))
	for _, r := range reviews {
		views = append(views, models.ReviewView{Review: r, IsOwnedByViewer: IsOwnedBy(r, auth)})
	}
	return views
}
