package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"portal/internal/apperr"
	"portal/internal/metrics"
	"portal/internal/models"
	"portal/internal/policy"
	"portal/internal/validate"
)

type CommentService struct {
	articles ArticleRepository
	comments CommentRepository
	validate *validate.Validator
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewCommentService(articles ArticleRepository, comments CommentRepository, v *validate.Validator, m *metrics.Metrics, log logrus.FieldLogger) *CommentService {
	return &CommentService{articles: articles, comments: comments, validate: v, metrics: m, log: log, now: time.Now}
}

// Create posts a comment on a published article.
func (s *CommentService) Create(ctx context.Context, a policy.Actor, articleID int64, in models.CommentInput) (models.Comment, error) {
	if !a.Authenticated() {
		return models.Comment{}, apperr.ErrUnauthenticated
	}
	in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return models.Comment{}, err
	}

	art, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return models.Comment{}, err
	}
	c, err := policy.NewComment(a, art, in, s.now())
	if err != nil {
		return models.Comment{}, err
	}
	if err := s.comments.Create(ctx, &c); err != nil {
		return models.Comment{}, err
	}
	s.metrics.CommentPosted()
	s.log.WithFields(logrus.Fields{"comment_id": c.ID, "article_id": art.ID, "user_id": a.ID}).Info("comment posted")
	return c, nil
}

// Delete removes comment id when a wrote it or is an admin. It returns the
// deleted comment so callers can point back at its article.
func (s *CommentService) Delete(ctx context.Context, a policy.Actor, id int64) (models.Comment, error) {
	if !a.Authenticated() {
		return models.Comment{}, apperr.ErrUnauthenticated
	}
	c, err := s.comments.Delete(ctx, id, func(cur models.Comment) error {
		return policy.DeleteComment(a, cur)
	})
	if err != nil {
		return models.Comment{}, err
	}
	s.log.WithFields(logrus.Fields{"comment_id": id, "user_id": a.ID}).Info("comment deleted")
	return c, nil
}
