//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"portal/internal/apperr"
	"portal/internal/db"
	"portal/internal/models"
	"portal/internal/repository"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("portal"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pg) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	conn, err := db.Open(ctx, dsn, db.Options{}, log)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(ctx, conn))
	// Running twice must be harmless.
	require.NoError(t, db.Migrate(ctx, conn))
	return conn
}

func TestRepositories_Postgres(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()

	users := repository.NewUserRepository(conn)
	reports := repository.NewReportRepository(conn)
	articles := repository.NewArticleRepository(conn)
	comments := repository.NewCommentRepository(conn)

	admin := &models.User{Name: "Kades", Email: "kades@example.com", PasswordHash: "x", Role: models.RoleAdmin}
	resident := &models.User{Name: "Budi", Email: "budi@example.com", PasswordHash: "x", Role: models.RoleResident}
	require.NoError(t, users.Create(ctx, admin))
	require.NoError(t, users.Create(ctx, resident))
	assert.ErrorIs(t, users.Create(ctx, &models.User{Name: "B", Email: "budi@example.com", PasswordHash: "x", Role: models.RoleResident}),
		apperr.ErrDuplicate)

	n, err := users.CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	now := time.Now().UTC().Truncate(time.Microsecond)
	r := &models.Report{
		OwnerID: resident.ID, Title: "Broken bridge", Description: "Planks missing",
		Category: models.CategoryBridge, Priority: models.PriorityHigh, Status: models.StatusNew,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, reports.Create(ctx, r))

	got, err := reports.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Budi", got.OwnerName)
	assert.False(t, got.Latitude.Valid)

	updated, err := reports.Update(ctx, r.ID, func(cur models.Report) (models.Report, error) {
		cur.Status = models.StatusInProgress
		cur.UpdatedAt = now.Add(time.Minute)
		return cur, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	byStatus, err := reports.CountByStatus(ctx, models.ReportScope{OwnerID: resident.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, byStatus[models.StatusInProgress])
	assert.Equal(t, 0, byStatus[models.StatusNew])

	mine, total, err := reports.List(ctx, models.ReportFilter{Scope: models.ReportScope{OwnerID: admin.ID}}, models.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, mine)

	a := &models.Article{
		AuthorID: admin.ID, Title: "Gotong royong", Slug: "gotong-royong-1", Content: "Sunday",
		Status: models.ArticlePublished, PublishedAt: &now, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, articles.Create(ctx, a))
	dup := *a
	assert.ErrorIs(t, articles.Create(ctx, &dup), apperr.ErrDuplicate)

	bySlug, err := articles.GetBySlug(ctx, "gotong-royong-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, bySlug.ID)

	c := &models.Comment{ArticleID: a.ID, AuthorID: resident.ID, Content: "Count me in", CreatedAt: now}
	require.NoError(t, comments.Create(ctx, c))

	list, err := comments.ListByArticle(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Budi", list[0].AuthorName)

	require.NoError(t, articles.Delete(ctx, a.ID))
	list, err = comments.ListByArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, reports.Delete(ctx, r.ID, func(models.Report) error { return nil }))
	_, err = reports.GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
