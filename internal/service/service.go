// Package service runs the portal use cases: it loads data through the
// repositories, asks the policy what the actor may do and persists the
// result.
package service

import (
	"context"

	"portal/internal/models"
)

type UserRepository interface {
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) error
	GetByID(ctx context.Context, id int64) (models.Report, error)
	List(ctx context.Context, f models.ReportFilter, page models.PageRequest) ([]models.Report, int, error)
	Recent(ctx context.Context, scope models.ReportScope, limit int) ([]models.Report, error)
	Count(ctx context.Context, f models.ReportFilter) (int, error)
	CountByStatus(ctx context.Context, scope models.ReportScope) (map[models.ReportStatus]int, error)
	CountByCategory(ctx context.Context, scope models.ReportScope) (map[models.Category]int, error)
	Update(ctx context.Context, id int64, apply func(models.Report) (models.Report, error)) (models.Report, error)
	Delete(ctx context.Context, id int64, check func(models.Report) error) error
}

type ArticleRepository interface {
	Create(ctx context.Context, a *models.Article) error
	GetByID(ctx context.Context, id int64) (models.Article, error)
	GetBySlug(ctx context.Context, slug string) (models.Article, error)
	List(ctx context.Context, scope models.ArticleScope, page models.PageRequest) ([]models.Article, int, error)
	Recent(ctx context.Context, scope models.ArticleScope, limit int) ([]models.Article, error)
	Count(ctx context.Context, scope models.ArticleScope) (int, error)
	Update(ctx context.Context, id int64, apply func(models.Article) (models.Article, error)) (models.Article, error)
	Delete(ctx context.Context, id int64) error
}

type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	ListByArticle(ctx context.Context, articleID int64) ([]models.Comment, error)
	Delete(ctx context.Context, id int64, check func(models.Comment) error) (models.Comment, error)
}

func page[T any](data []T, req models.PageRequest, total int) models.Page[T] {
	req = req.Normalize()
	if data == nil {
		data = []T{}
	}
	return models.Page[T]{Data: data, Page: req.Page, PerPage: req.PerPage, Total: total}
}
