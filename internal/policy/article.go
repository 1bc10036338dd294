package policy

import (
	"time"

	"portal/internal/apperr"
	"portal/internal/models"
)

// ListArticles: admins see drafts too, everyone else published only.
func ListArticles(a Actor) models.ArticleScope {
	return models.ArticleScope{PublishedOnly: !a.IsAdmin()}
}

func CanViewArticle(a Actor, art models.Article) bool {
	return art.Status == models.ArticlePublished || a.IsAdmin()
}

// ViewArticle reports unpublished articles as missing to non-admins.
func ViewArticle(a Actor, art models.Article) error {
	if CanViewArticle(a, art) {
		return nil
	}
	return apperr.ErrNotFound
}

func CanCreateArticle(a Actor) bool { return a.IsAdmin() }
func CanEditArticle(a Actor) bool   { return a.IsAdmin() }
func CanDeleteArticle(a Actor) bool { return a.IsAdmin() }

// ManageArticles is the error form of the admin-only article checks.
func ManageArticles(a Actor) error {
	if a.IsAdmin() {
		return nil
	}
	return deny(a, apperr.ErrForbidden)
}

// NewArticle builds an article authored by a. Creating it already published
// stamps published_at.
func NewArticle(a Actor, in models.ArticleInput, slug string, now time.Time) (models.Article, error) {
	if !CanCreateArticle(a) {
		return models.Article{}, deny(a, apperr.ErrForbidden)
	}
	art := models.Article{
		AuthorID:  a.ID,
		Title:     in.Title,
		Slug:      slug,
		Content:   in.Content,
		Status:    models.ArticleDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Excerpt != nil {
		art.Excerpt = ptr(*in.Excerpt)
	}
	return ApplyArticleStatusChange(art, &in.Status, now), nil
}

// ApplyArticleUpdate replaces the editable fields of old. The slug is kept so
// existing links stay valid.
func ApplyArticleUpdate(a Actor, old models.Article, in models.ArticleInput, now time.Time) (models.Article, error) {
	if !CanEditArticle(a) {
		return old, deny(a, apperr.ErrForbidden)
	}
	out := old
	out.Title = in.Title
	out.Content = in.Content
	out.Excerpt = nil
	if in.Excerpt != nil {
		out.Excerpt = ptr(*in.Excerpt)
	}
	out = ApplyArticleStatusChange(out, &in.Status, now)
	out.UpdatedAt = now
	return out, nil
}

// ApplyArticleStatusChange moves old to status. published_at is set only on a
// draft to published transition and cleared whenever the article goes back
// to draft. A nil status leaves the article as it is.
func ApplyArticleStatusChange(old models.Article, status *models.ArticleStatus, now time.Time) models.Article {
	out := old
	if status == nil {
		return out
	}
	switch *status {
	case models.ArticlePublished:
		if old.Status != models.ArticlePublished {
			out.PublishedAt = ptr(now)
		}
	case models.ArticleDraft:
		out.PublishedAt = nil
	}
	out.Status = *status
	return out
}
