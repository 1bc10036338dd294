package policy

import (
	"time"

	"portal/internal/apperr"
	"portal/internal/models"
)

func CanCreateComment(a Actor, art models.Article) bool {
	return a.Authenticated() && art.Status == models.ArticlePublished
}

// NewComment builds a comment on art. Unpublished articles are reported as
// missing to actors who cannot see them, and forbidden to those who can.
func NewComment(a Actor, art models.Article, in models.CommentInput, now time.Time) (models.Comment, error) {
	if !a.Authenticated() {
		return models.Comment{}, apperr.ErrUnauthenticated
	}
	if !CanCreateComment(a, art) {
		if !CanViewArticle(a, art) {
			return models.Comment{}, apperr.ErrNotFound
		}
		return models.Comment{}, apperr.ErrForbidden
	}
	return models.Comment{
		ArticleID: art.ID,
		AuthorID:  a.ID,
		Content:   in.Content,
		CreatedAt: now,
	}, nil
}

func CanDeleteComment(a Actor, c models.Comment) bool {
	return a.Authenticated() && (c.AuthorID == a.ID || a.IsAdmin())
}

func DeleteComment(a Actor, c models.Comment) error {
	if CanDeleteComment(a, c) {
		return nil
	}
	return deny(a, apperr.ErrForbidden)
}
