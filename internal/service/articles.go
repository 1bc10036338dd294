package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"portal/internal/metrics"
	"portal/internal/models"
	"portal/internal/policy"
	"portal/internal/validate"
)

type ArticleService struct {
	articles ArticleRepository
	comments CommentRepository
	validate *validate.Validator
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
	suffix   func() string
}

func NewArticleService(articles ArticleRepository, comments CommentRepository, v *validate.Validator, m *metrics.Metrics, log logrus.FieldLogger) *ArticleService {
	return &ArticleService{
		articles: articles,
		comments: comments,
		validate: v,
		metrics:  m,
		log:      log,
		now:      time.Now,
		suffix:   func() string { return uuid.NewString()[:8] },
	}
}

// ArticleDetail is an article with its comments, oldest first.
type ArticleDetail struct {
	models.Article
	Comments []models.Comment `json:"comments"`
}

func (s *ArticleService) List(ctx context.Context, a policy.Actor, req models.PageRequest) (models.Page[models.Article], error) {
	arts, total, err := s.articles.List(ctx, policy.ListArticles(a), req)
	if err != nil {
		return models.Page[models.Article]{}, err
	}
	return page(arts, req, total), nil
}

// Get looks an article up by numeric id or by slug.
func (s *ArticleService) Get(ctx context.Context, a policy.Actor, ref string) (ArticleDetail, error) {
	var (
		art models.Article
		err error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		art, err = s.articles.GetByID(ctx, id)
	} else {
		art, err = s.articles.GetBySlug(ctx, ref)
	}
	if err != nil {
		return ArticleDetail{}, err
	}
	if err := policy.ViewArticle(a, art); err != nil {
		return ArticleDetail{}, err
	}

	comments, err := s.comments.ListByArticle(ctx, art.ID)
	if err != nil {
		return ArticleDetail{}, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return ArticleDetail{Article: art, Comments: comments}, nil
}

func (s *ArticleService) Create(ctx context.Context, a policy.Actor, in models.ArticleInput) (models.Article, error) {
	if err := policy.ManageArticles(a); err != nil {
		return models.Article{}, err
	}
	in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return models.Article{}, err
	}

	art, err := policy.NewArticle(a, in, s.slug(in.Title), s.now())
	if err != nil {
		return models.Article{}, err
	}
	if err := s.articles.Create(ctx, &art); err != nil {
		return models.Article{}, err
	}
	if art.Status == models.ArticlePublished {
		s.metrics.ArticlePublished()
	}
	s.log.WithFields(logrus.Fields{"article_id": art.ID, "slug": art.Slug, "status": art.Status}).Info("article created")
	return art, nil
}

func (s *ArticleService) Update(ctx context.Context, a policy.Actor, id int64, in models.ArticleInput) (models.Article, error) {
	if err := policy.ManageArticles(a); err != nil {
		return models.Article{}, err
	}
	in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return models.Article{}, err
	}

	var was models.ArticleStatus
	out, err := s.articles.Update(ctx, id, func(cur models.Article) (models.Article, error) {
		was = cur.Status
		return policy.ApplyArticleUpdate(a, cur, in, s.now())
	})
	if err != nil {
		return models.Article{}, err
	}
	if was != models.ArticlePublished && out.Status == models.ArticlePublished {
		s.metrics.ArticlePublished()
	}
	s.log.WithFields(logrus.Fields{"article_id": id, "status": out.Status}).Info("article updated")
	return out, nil
}

// Delete removes an article together with its comments.
func (s *ArticleService) Delete(ctx context.Context, a policy.Actor, id int64) error {
	if err := policy.ManageArticles(a); err != nil {
		return err
	}
	if err := s.articles.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("article_id", id).Info("article deleted")
	return nil
}

// slug is the slugified title plus a short random suffix, so two articles
// with the same title never collide.
func (s *ArticleService) slug(title string) string {
	base := models.Slugify(title)
	if base == "" {
		base = "article"
	}
	return base + "-" + s.suffix()
}
