package repository

import (
	"context"
	"database/sql"
	"fmt"

	"portal/internal/apperr"
	"portal/internal/models"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `
  r.id, r.owner_id, r.title, r.description, r.category, r.priority, r.status,
  r.latitude, r.longitude, r.location_name, r.admin_response, r.responded_at,
  r.created_at, r.updated_at, u.name`

const reportFrom = `
FROM reports r
JOIN users u ON u.id = r.owner_id`

func scanReport(row rowScanner) (models.Report, error) {
	var r models.Report
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Title, &r.Description, &r.Category, &r.Priority, &r.Status,
		&r.Latitude, &r.Longitude, &r.LocationName, &r.AdminResponse, &r.RespondedAt,
		&r.CreatedAt, &r.UpdatedAt, &r.OwnerName,
	)
	return r, err
}

func reportFilterArgs(f models.ReportFilter) *queryArgs {
	q := &queryArgs{}
	if !f.Scope.All {
		q.where("r.owner_id = " + q.next(f.Scope.OwnerID))
	}
	if len(f.Statuses) > 0 {
		in := ""
		for i, s := range f.Statuses {
			if i > 0 {
				in += ", "
			}
			in += q.next(string(s))
		}
		q.where("r.status IN (" + in + ")")
	}
	return q
}

// Create inserts r and fills its id.
func (repo *ReportRepository) Create(ctx context.Context, r *models.Report) error {
	err := repo.db.QueryRowContext(ctx, `
INSERT INTO reports (
  owner_id, title, description, category, priority, status,
  latitude, longitude, location_name, admin_response, responded_at,
  created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`,
		r.OwnerID, r.Title, r.Description, string(r.Category), string(r.Priority), string(r.Status),
		r.Latitude, r.Longitude, r.LocationName, r.AdminResponse, r.RespondedAt,
		r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (repo *ReportRepository) GetByID(ctx context.Context, id int64) (models.Report, error) {
	r, err := scanReport(repo.db.QueryRowContext(ctx, `SELECT`+reportColumns+reportFrom+`
WHERE r.id = $1`, id))
	if err != nil {
		return models.Report{}, fmt.Errorf("get report %d: %w", id, notFound(err))
	}
	return r, nil
}

// List returns one page of reports, newest first with id as tie-break, and
// the total number of reports matching f.
func (repo *ReportRepository) List(ctx context.Context, f models.ReportFilter, page models.PageRequest) ([]models.Report, int, error) {
	total, err := repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	reports, err := repo.query(ctx, f, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// Recent returns the newest limit reports in scope.
func (repo *ReportRepository) Recent(ctx context.Context, scope models.ReportScope, limit int) ([]models.Report, error) {
	return repo.query(ctx, models.ReportFilter{Scope: scope}, limit, 0)
}

func (repo *ReportRepository) query(ctx context.Context, f models.ReportFilter, limit, offset int) ([]models.Report, error) {
	q := reportFilterArgs(f)
	stmt := `SELECT` + reportColumns + reportFrom + q.clause() + `
ORDER BY r.created_at DESC, r.id DESC
LIMIT ` + q.next(limit) + ` OFFSET ` + q.next(offset)

	rows, err := repo.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func (repo *ReportRepository) Count(ctx context.Context, f models.ReportFilter) (int, error) {
	q := reportFilterArgs(f)
	var n int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports r`+q.clause(), q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// CountByStatus groups the reports in scope by status. Every status is
// present in the result, zero when no report has it.
func (repo *ReportRepository) CountByStatus(ctx context.Context, scope models.ReportScope) (map[models.ReportStatus]int, error) {
	out := make(map[models.ReportStatus]int, len(models.ReportStatuses))
	for _, s := range models.ReportStatuses {
		out[s] = 0
	}
	err := repo.groupBy(ctx, "status", scope, func(rows *sql.Rows) error {
		var (
			s models.ReportStatus
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return err
		}
		out[s] = n
		return nil
	})
	return out, err
}

// CountByCategory groups the reports in scope by category, zero-filled.
func (repo *ReportRepository) CountByCategory(ctx context.Context, scope models.ReportScope) (map[models.Category]int, error) {
	out := make(map[models.Category]int, len(models.Categories))
	for _, c := range models.Categories {
		out[c] = 0
	}
	err := repo.groupBy(ctx, "category", scope, func(rows *sql.Rows) error {
		var (
			c models.Category
			n int
		)
		if err := rows.Scan(&c, &n); err != nil {
			return err
		}
		out[c] = n
		return nil
	})
	return out, err
}

// groupBy runs a count grouped by column; column is never user input.
func (repo *ReportRepository) groupBy(ctx context.Context, column string, scope models.ReportScope, scan func(*sql.Rows) error) error {
	q := reportFilterArgs(models.ReportFilter{Scope: scope})
	stmt := `SELECT r.` + column + `, COUNT(*) FROM reports r` + q.clause() + `
GROUP BY r.` + column

	rows, err := repo.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return fmt.Errorf("reports by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("reports by %s: %w", column, err)
		}
	}
	return rows.Err()
}

// Update locks report id, hands the current row to apply and writes back
// what apply returns, all inside one transaction. An error from apply rolls
// the transaction back untouched.
func (repo *ReportRepository) Update(ctx context.Context, id int64, apply func(models.Report) (models.Report, error)) (models.Report, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Report{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cur, err := lockReport(ctx, tx, id)
	if err != nil {
		return models.Report{}, err
	}
	next, err := apply(cur)
	if err != nil {
		return models.Report{}, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE reports SET
  title = $2, description = $3, category = $4, priority = $5, status = $6,
  latitude = $7, longitude = $8, location_name = $9,
  admin_response = $10, responded_at = $11, updated_at = $12
WHERE id = $1`,
		id, next.Title, next.Description, string(next.Category), string(next.Priority), string(next.Status),
		next.Latitude, next.Longitude, next.LocationName,
		next.AdminResponse, next.RespondedAt, next.UpdatedAt,
	)
	if err != nil {
		return models.Report{}, fmt.Errorf("update report %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Report{}, fmt.Errorf("update report %d: %w", id, apperr.ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return models.Report{}, fmt.Errorf("commit report %d: %w", id, err)
	}
	return next, nil
}

// Delete locks report id and deletes it if check accepts the current row.
func (repo *ReportRepository) Delete(ctx context.Context, id int64, check func(models.Report) error) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cur, err := lockReport(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := check(cur); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete report %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report %d: %w", id, err)
	}
	return nil
}

func lockReport(ctx context.Context, tx *sql.Tx, id int64) (models.Report, error) {
	r, err := scanReport(tx.QueryRowContext(ctx, `SELECT`+reportColumns+reportFrom+`
WHERE r.id = $1
FOR UPDATE OF r`, id))
	if err != nil {
		return models.Report{}, fmt.Errorf("lock report %d: %w", id, notFound(err))
	}
	return r, nil
}
