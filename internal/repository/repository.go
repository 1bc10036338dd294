// Package repository persists users, reports, articles and comments in
// PostgreSQL through database/sql.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"portal/internal/apperr"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// queryArgs numbers placeholders in the order values are added.
type queryArgs struct {
	args  []any
	conds []string
}

func (q *queryArgs) next(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *queryArgs) where(cond string) {
	q.conds = append(q.conds, cond)
}

func (q *queryArgs) clause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return "\n WHERE " + strings.Join(q.conds, "\n   AND ")
}

// notFound maps sql.ErrNoRows onto apperr.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
