package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/apperr"
	"portal/internal/models"
)

func TestReportInput(t *testing.T) {
	v := New()

	t.Run("Valid", func(t *testing.T) {
		lat := -7.25
		err := v.Struct(models.ReportInput{
			Title:       "Flooded road",
			Description: "Water up to the knee",
			Category:    models.CategoryRoad,
			Priority:    models.PriorityEmergency,
			Latitude:    &lat,
		})
		assert.NoError(t, err)
	})

	t.Run("FieldMessages", func(t *testing.T) {
		lat := 91.0
		err := v.Struct(models.ReportInput{
			Category: models.Category("jalan"),
			Priority: models.PriorityLow,
			Latitude: &lat,
		})
		ve, ok := apperr.IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "The title field is required", ve.Fields["title"])
		assert.Equal(t, "The description field is required", ve.Fields["description"])
		assert.Equal(t, "The selected category is invalid", ve.Fields["category"])
		assert.Equal(t, "The latitude field must not be greater than 90", ve.Fields["latitude"])
		assert.NotContains(t, ve.Fields, "priority")
	})
}

func TestAdminReportPatch(t *testing.T) {
	v := New()

	blank := ""
	bogus := models.ReportStatus("selesai")
	err := v.Struct(models.AdminReportPatch{
		ReportPatch: models.ReportPatch{Title: &blank},
		Status:      &bogus,
	})
	ve, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "status")

	done := models.StatusDone
	assert.NoError(t, v.Struct(models.AdminReportPatch{Status: &done}))
	assert.NoError(t, v.Struct(models.AdminReportPatch{}))
}

func TestArticleAndComment(t *testing.T) {
	v := New()

	err := v.Struct(models.ArticleInput{Title: "News", Content: "Body", Status: "archived"})
	ve, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "status")

	assert.NoError(t, v.Struct(models.ArticleInput{Title: "News", Content: "Body", Status: models.ArticleDraft}))

	err = v.Struct(models.CommentInput{})
	_, ok = apperr.IsValidation(err)
	assert.True(t, ok)
}

func TestRegisterInput(t *testing.T) {
	v := New()
	err := v.Struct(models.RegisterInput{Name: "Budi", Email: "not-an-email", Password: "123"})
	ve, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "The email field must be a valid email address", ve.Fields["email"])
	assert.Equal(t, "The password field must be at least 6 characters", ve.Fields["password"])
}
