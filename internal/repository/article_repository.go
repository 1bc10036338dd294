package repository

import (
	"context"
	"database/sql"
	"fmt"

	"portal/internal/apperr"
	"portal/internal/models"
)

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

const articleColumns = `
  a.id, a.author_id, a.title, a.slug, a.excerpt, a.content, a.status,
  a.published_at, a.created_at, a.updated_at, u.name`

const articleFrom = `
FROM articles a
JOIN users u ON u.id = a.author_id`

func scanArticle(row rowScanner) (models.Article, error) {
	var a models.Article
	err := row.Scan(
		&a.ID, &a.AuthorID, &a.Title, &a.Slug, &a.Excerpt, &a.Content, &a.Status,
		&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt, &a.AuthorName,
	)
	return a, err
}

func articleScopeArgs(scope models.ArticleScope) *queryArgs {
	q := &queryArgs{}
	if scope.PublishedOnly {
		q.where("a.status = " + q.next(string(models.ArticlePublished)))
	}
	return q
}

// articleOrder puts the newest first: by publication date for readers, by
// creation date for admins who also see drafts.
func articleOrder(scope models.ArticleScope) string {
	if scope.PublishedOnly {
		return "\nORDER BY a.published_at DESC, a.id DESC"
	}
	return "\nORDER BY a.created_at DESC, a.id DESC"
}

func (repo *ArticleRepository) Create(ctx context.Context, a *models.Article) error {
	err := repo.db.QueryRowContext(ctx, `
INSERT INTO articles (author_id, title, slug, excerpt, content, status, published_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`,
		a.AuthorID, a.Title, a.Slug, a.Excerpt, a.Content, string(a.Status), a.PublishedAt, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("create article %q: %w", a.Slug, apperr.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

func (repo *ArticleRepository) GetByID(ctx context.Context, id int64) (models.Article, error) {
	a, err := scanArticle(repo.db.QueryRowContext(ctx, `SELECT`+articleColumns+articleFrom+`
WHERE a.id = $1`, id))
	if err != nil {
		return models.Article{}, fmt.Errorf("get article %d: %w", id, notFound(err))
	}
	return a, nil
}

func (repo *ArticleRepository) GetBySlug(ctx context.Context, slug string) (models.Article, error) {
	a, err := scanArticle(repo.db.QueryRowContext(ctx, `SELECT`+articleColumns+articleFrom+`
WHERE a.slug = $1`, slug))
	if err != nil {
		return models.Article{}, fmt.Errorf("get article %q: %w", slug, notFound(err))
	}
	return a, nil
}

func (repo *ArticleRepository) List(ctx context.Context, scope models.ArticleScope, page models.PageRequest) ([]models.Article, int, error) {
	total, err := repo.Count(ctx, scope)
	if err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	arts, err := repo.query(ctx, scope, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return arts, total, nil
}

func (repo *ArticleRepository) Recent(ctx context.Context, scope models.ArticleScope, limit int) ([]models.Article, error) {
	return repo.query(ctx, scope, limit, 0)
}

func (repo *ArticleRepository) query(ctx context.Context, scope models.ArticleScope, limit, offset int) ([]models.Article, error) {
	q := articleScopeArgs(scope)
	stmt := `SELECT` + articleColumns + articleFrom + q.clause() + articleOrder(scope) + `
LIMIT ` + q.next(limit) + ` OFFSET ` + q.next(offset)

	rows, err := repo.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return out, nil
}

func (repo *ArticleRepository) Count(ctx context.Context, scope models.ArticleScope) (int, error) {
	q := articleScopeArgs(scope)
	var n int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a`+q.clause(), q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// Update locks article id and writes back what apply returns.
func (repo *ArticleRepository) Update(ctx context.Context, id int64, apply func(models.Article) (models.Article, error)) (models.Article, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Article{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanArticle(tx.QueryRowContext(ctx, `SELECT`+articleColumns+articleFrom+`
WHERE a.id = $1
FOR UPDATE OF a`, id))
	if err != nil {
		return models.Article{}, fmt.Errorf("lock article %d: %w", id, notFound(err))
	}
	next, err := apply(cur)
	if err != nil {
		return models.Article{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE articles SET
  title = $2, excerpt = $3, content = $4, status = $5, published_at = $6, updated_at = $7
WHERE id = $1`,
		id, next.Title, next.Excerpt, next.Content, string(next.Status), next.PublishedAt, next.UpdatedAt,
	)
	if err != nil {
		return models.Article{}, fmt.Errorf("update article %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Article{}, fmt.Errorf("update article %d: %w", id, apperr.ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return models.Article{}, fmt.Errorf("commit article %d: %w", id, err)
	}
	return next, nil
}

// Delete removes article id; its comments go with it (ON DELETE CASCADE).
func (repo *ArticleRepository) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete article %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete article %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}
