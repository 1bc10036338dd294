package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/apperr"
	"portal/internal/models"
)

func articleInput(title string, status models.ArticleStatus) models.ArticleInput {
	return models.ArticleInput{Title: title, Content: "Body of " + title, Status: status}
}

func TestArticleService_CreateAndFind(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	art, err := h.articles.Create(ctx, admin, articleInput("Posyandu Schedule", models.ArticlePublished))
	require.NoError(t, err)
	assert.Equal(t, "posyandu-schedule-abcd1234", art.Slug)
	require.NotNil(t, art.PublishedAt)
	assert.Equal(t, opTime, *art.PublishedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ArticlesPublished))

	bySlug, err := h.articles.Get(ctx, anon, art.Slug)
	require.NoError(t, err)
	assert.Equal(t, art.ID, bySlug.ID)
	assert.NotNil(t, bySlug.Comments)

	byID, err := h.articles.Get(ctx, anon, strconv.FormatInt(art.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, art.Slug, byID.Slug)
}

func TestArticleService_DraftHiddenFromNonAdmins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	draft, err := h.articles.Create(ctx, admin, articleInput("Budget draft", models.ArticleDraft))
	require.NoError(t, err)
	assert.Nil(t, draft.PublishedAt)

	_, err = h.articles.Get(ctx, anon, draft.Slug)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = h.articles.Get(ctx, resident, draft.Slug)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = h.articles.Get(ctx, admin, draft.Slug)
	assert.NoError(t, err)

	public, err := h.articles.List(ctx, anon, models.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, public.Total)
	assert.NotNil(t, public.Data)

	all, err := h.articles.List(ctx, admin, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Total)
}

func TestArticleService_PublishThenUnpublish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	draft, err := h.articles.Create(ctx, admin, articleInput("Clean-up day", models.ArticleDraft))
	require.NoError(t, err)

	pub, err := h.articles.Update(ctx, admin, draft.ID, articleInput("Clean-up day", models.ArticlePublished))
	require.NoError(t, err)
	require.NotNil(t, pub.PublishedAt)
	assert.Equal(t, draft.Slug, pub.Slug)

	again, err := h.articles.Update(ctx, admin, draft.ID, articleInput("Clean-up day (updated)", models.ArticlePublished))
	require.NoError(t, err)
	assert.Equal(t, *pub.PublishedAt, *again.PublishedAt)

	back, err := h.articles.Update(ctx, admin, draft.ID, articleInput("Clean-up day", models.ArticleDraft))
	require.NoError(t, err)
	assert.Nil(t, back.PublishedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ArticlesPublished))
}

func TestArticleService_AdminOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.articles.Create(ctx, resident, articleInput("Hi", models.ArticlePublished))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = h.articles.Create(ctx, anon, articleInput("Hi", models.ArticlePublished))
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.ErrorIs(t, h.articles.Delete(ctx, resident, 1), apperr.ErrForbidden)

	_, err = h.articles.Create(ctx, admin, models.ArticleInput{Title: " ", Status: "archived"})
	ve, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "content")
	assert.Contains(t, ve.Fields, "status")
}

func TestArticleService_DeleteTakesComments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	art, err := h.articles.Create(ctx, admin, articleInput("Gotong royong", models.ArticlePublished))
	require.NoError(t, err)
	_, err = h.comments.Create(ctx, resident, art.ID, models.CommentInput{Content: "I'll bring a shovel"})
	require.NoError(t, err)

	require.NoError(t, h.articles.Delete(ctx, admin, art.ID))
	assert.Zero(t, h.store.NumComments())
	assert.ErrorIs(t, h.articles.Delete(ctx, admin, art.ID), apperr.ErrNotFound)
}

func TestCommentService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pub, err := h.articles.Create(ctx, admin, articleInput("Water schedule", models.ArticlePublished))
	require.NoError(t, err)
	draft, err := h.articles.Create(ctx, admin, articleInput("Secret", models.ArticleDraft))
	require.NoError(t, err)

	t.Run("OnPublished", func(t *testing.T) {
		c, err := h.comments.Create(ctx, resident, pub.ID, models.CommentInput{Content: "  Thanks!  "})
		require.NoError(t, err)
		assert.Equal(t, "Thanks!", c.Content)
		assert.Equal(t, resident.ID, c.AuthorID)
		assert.Equal(t, opTime, c.CreatedAt)
	})

	t.Run("OnDraft", func(t *testing.T) {
		_, err := h.comments.Create(ctx, resident, draft.ID, models.CommentInput{Content: "hmm"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = h.comments.Create(ctx, admin, draft.ID, models.CommentInput{Content: "hmm"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("Anonymous", func(t *testing.T) {
		_, err := h.comments.Create(ctx, anon, pub.ID, models.CommentInput{Content: "hi"})
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := h.comments.Create(ctx, resident, pub.ID, models.CommentInput{Content: "   "})
		_, ok := apperr.IsValidation(err)
		assert.True(t, ok)
	})

	t.Run("DeleteRules", func(t *testing.T) {
		c, err := h.comments.Create(ctx, resident, pub.ID, models.CommentInput{Content: "mine"})
		require.NoError(t, err)

		_, err = h.comments.Delete(ctx, other, c.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		gone, err := h.comments.Delete(ctx, admin, c.ID)
		require.NoError(t, err)
		assert.Equal(t, pub.ID, gone.ArticleID)

		_, err = h.comments.Delete(ctx, resident, c.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	detail, err := h.articles.Get(ctx, anon, pub.Slug)
	require.NoError(t, err)
	assert.Len(t, detail.Comments, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.CommentsPosted))
}
