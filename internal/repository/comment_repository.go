package repository

import (
	"context"
	"database/sql"
	"fmt"

	"portal/internal/models"
)

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentColumns = `
  c.id, c.article_id, c.author_id, c.content, c.created_at, u.name`

const commentFrom = `
FROM comments c
JOIN users u ON u.id = c.author_id`

func scanComment(row rowScanner) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.AuthorName)
	return c, err
}

func (repo *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	err := repo.db.QueryRowContext(ctx, `
INSERT INTO comments (article_id, author_id, content, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id`,
		c.ArticleID, c.AuthorID, c.Content, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListByArticle returns the comments of an article, oldest first.
func (repo *CommentRepository) ListByArticle(ctx context.Context, articleID int64) ([]models.Comment, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT`+commentColumns+commentFrom+`
WHERE c.article_id = $1
ORDER BY c.created_at ASC, c.id ASC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}

// Delete locks comment id and removes it if check accepts it.
func (repo *CommentRepository) Delete(ctx context.Context, id int64, check func(models.Comment) error) (models.Comment, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Comment{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanComment(tx.QueryRowContext(ctx, `SELECT`+commentColumns+commentFrom+`
WHERE c.id = $1
FOR UPDATE OF c`, id))
	if err != nil {
		return models.Comment{}, fmt.Errorf("lock comment %d: %w", id, notFound(err))
	}
	if err := check(cur); err != nil {
		return models.Comment{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return models.Comment{}, fmt.Errorf("delete comment %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Comment{}, fmt.Errorf("commit comment %d: %w", id, err)
	}
	return cur, nil
}
