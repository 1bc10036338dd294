package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/apperr"
	"portal/internal/models"
	"portal/internal/policy"
)

var (
	admin    = policy.Actor{ID: 1, Role: models.RoleAdmin}
	resident = policy.Actor{ID: 2, Role: models.RoleResident}
	other    = policy.Actor{ID: 3, Role: models.RoleResident}
	anon     = policy.Anonymous()
	opTime   = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
)

func str(s string) *string { return &s }

func reportOwnedBy(owner int64, status models.ReportStatus) models.Report {
	return models.Report{
		ID:          42,
		OwnerID:     owner,
		Title:       "Pothole on main road",
		Description: "Deep pothole near the mosque",
		Category:    models.CategoryRoad,
		Priority:    models.PriorityHigh,
		Status:      status,
	}
}

func TestListReports(t *testing.T) {
	scope, err := policy.ListReports(admin)
	require.NoError(t, err)
	assert.True(t, scope.All)

	scope, err = policy.ListReports(resident)
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.Equal(t, resident.ID, scope.OwnerID)

	_, err = policy.ListReports(anon)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestViewReport(t *testing.T) {
	for _, st := range models.ReportStatuses {
		r := reportOwnedBy(resident.ID, st)

		t.Run(string(st), func(t *testing.T) {
			assert.True(t, policy.CanViewReport(admin, r))
			assert.NoError(t, policy.ViewReport(admin, r))

			assert.True(t, policy.CanViewReport(resident, r))

			assert.False(t, policy.CanViewReport(other, r))
			assert.ErrorIs(t, policy.ViewReport(other, r), apperr.ErrNotFound)

			assert.False(t, policy.CanViewReport(anon, r))
			assert.ErrorIs(t, policy.ViewReport(anon, r), apperr.ErrUnauthenticated)
		})
	}
}

func TestNewReport(t *testing.T) {
	in := models.ReportInput{
		Title:        "Broken street light",
		Description:  "Dark at night",
		Category:     models.CategoryElectricity,
		Priority:     models.PriorityMedium,
		Latitude:     func() *float64 { f := -6.2000000123; return &f }(),
		LocationName: str("RT 03"),
	}

	t.Run("Resident", func(t *testing.T) {
		r, err := policy.NewReport(resident, in, opTime)
		require.NoError(t, err)
		assert.Equal(t, models.StatusNew, r.Status)
		assert.Nil(t, r.AdminResponse)
		assert.Nil(t, r.RespondedAt)
		assert.Equal(t, resident.ID, r.OwnerID)
		assert.True(t, r.Latitude.Valid)
		assert.Equal(t, "-6.20000001", r.Latitude.Decimal.String())
		assert.False(t, r.Longitude.Valid)
	})

	t.Run("AdminRefused", func(t *testing.T) {
		_, err := policy.NewReport(admin, in, opTime)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.False(t, policy.CanCreateReport(admin))
	})

	t.Run("AnonymousRefused", func(t *testing.T) {
		_, err := policy.NewReport(anon, in, opTime)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestCanEditReport(t *testing.T) {
	for _, st := range models.ReportStatuses {
		own := reportOwnedBy(resident.ID, st)
		assert.True(t, policy.CanEditReport(admin, own), st)
		assert.Equal(t, st == models.StatusNew, policy.CanEditReport(resident, own), st)
		assert.False(t, policy.CanEditReport(other, own), st)
		assert.False(t, policy.CanEditReport(anon, own), st)
		assert.Equal(t, policy.CanEditReport(resident, own), policy.CanDeleteReport(resident, own), st)
	}
}

func TestDeleteReport(t *testing.T) {
	t.Run("OwnInProgressForbidden", func(t *testing.T) {
		err := policy.DeleteReport(resident, reportOwnedBy(resident.ID, models.StatusInProgress))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("OwnNewAllowed", func(t *testing.T) {
		assert.NoError(t, policy.DeleteReport(resident, reportOwnedBy(resident.ID, models.StatusNew)))
	})

	t.Run("ForeignForbidden", func(t *testing.T) {
		err := policy.DeleteReport(other, reportOwnedBy(resident.ID, models.StatusNew))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("AdminAnyStatus", func(t *testing.T) {
		for _, st := range models.ReportStatuses {
			assert.NoError(t, policy.DeleteReport(admin, reportOwnedBy(resident.ID, st)))
		}
	})
}

func TestApplyReportUpdate_ResidentNeverTouchesTriageFields(t *testing.T) {
	done := models.StatusDone
	rejected := models.StatusRejected
	patches := []models.AdminReportPatch{
		{},
		{Status: &done},
		{AdminResponse: str("Fixed")},
		{Status: &rejected, AdminResponse: str("Duplicate")},
		{ReportPatch: models.ReportPatch{Title: str("New title")}, Status: &done},
	}

	for i, p := range patches {
		before := reportOwnedBy(resident.ID, models.StatusNew)
		after, err := policy.ApplyReportUpdate(resident, before, p, opTime)
		require.NoError(t, err, "patch %d", i)
		assert.Equal(t, models.StatusNew, after.Status, "patch %d", i)
		assert.Nil(t, after.AdminResponse, "patch %d", i)
		assert.Nil(t, after.RespondedAt, "patch %d", i)
	}
}

func TestApplyReportUpdate_ResidentBasicFields(t *testing.T) {
	cat := models.CategoryDrainage
	lng := 106.816666
	p := models.AdminReportPatch{ReportPatch: models.ReportPatch{
		Title:        str("Blocked drain"),
		Category:     &cat,
		Longitude:    &lng,
		LocationName: str(""),
	}}
	before := reportOwnedBy(resident.ID, models.StatusNew)
	before.LocationName = str("Old place")

	after, err := policy.ApplyReportUpdate(resident, before, p, opTime)
	require.NoError(t, err)
	assert.Equal(t, "Blocked drain", after.Title)
	assert.Equal(t, before.Description, after.Description)
	assert.Equal(t, models.CategoryDrainage, after.Category)
	assert.Equal(t, models.PriorityHigh, after.Priority)
	assert.True(t, after.Longitude.Valid)
	assert.Nil(t, after.LocationName)
	assert.Equal(t, opTime, after.UpdatedAt)
	assert.Equal(t, before.OwnerID, after.OwnerID)
}

func TestApplyReportUpdate_ResidentRefused(t *testing.T) {
	p := models.AdminReportPatch{ReportPatch: models.ReportPatch{Title: str("x")}}

	_, err := policy.ApplyReportUpdate(resident, reportOwnedBy(resident.ID, models.StatusUnderReview), p, opTime)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = policy.ApplyReportUpdate(other, reportOwnedBy(resident.ID, models.StatusNew), p, opTime)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = policy.ApplyReportUpdate(anon, reportOwnedBy(resident.ID, models.StatusNew), p, opTime)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestApplyReportUpdate_AdminResponds(t *testing.T) {
	done := models.StatusDone
	before := reportOwnedBy(resident.ID, models.StatusInProgress)

	after, err := policy.ApplyReportUpdate(admin, before, models.AdminReportPatch{
		Status:        &done,
		AdminResponse: str("Fixed"),
	}, opTime)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, after.Status)
	require.NotNil(t, after.AdminResponse)
	assert.Equal(t, "Fixed", *after.AdminResponse)
	require.NotNil(t, after.RespondedAt)
	assert.Equal(t, opTime, *after.RespondedAt)

	// the input report is not modified
	assert.Equal(t, models.StatusInProgress, before.Status)
	assert.Nil(t, before.AdminResponse)
}

func TestApplyReportUpdate_AdminWithoutTriageKeepsRespondedAt(t *testing.T) {
	before := reportOwnedBy(resident.ID, models.StatusUnderReview)
	earlier := opTime.Add(-time.Hour)
	before.RespondedAt = &earlier

	after, err := policy.ApplyReportUpdate(admin, before, models.AdminReportPatch{
		ReportPatch: models.ReportPatch{Title: str("Retitled")},
	}, opTime)
	require.NoError(t, err)
	assert.Equal(t, "Retitled", after.Title)
	assert.Equal(t, models.StatusUnderReview, after.Status)
	assert.Equal(t, earlier, *after.RespondedAt)
}

func TestApplyReportUpdate_AdminStatusOnlyStampsRespondedAt(t *testing.T) {
	review := models.StatusUnderReview
	after, err := policy.ApplyReportUpdate(admin, reportOwnedBy(resident.ID, models.StatusNew),
		models.AdminReportPatch{Status: &review}, opTime)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, after.Status)
	assert.Nil(t, after.AdminResponse)
	require.NotNil(t, after.RespondedAt)
}
