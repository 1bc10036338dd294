package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/apperr"
	"portal/internal/metrics"
	"portal/internal/models"
	"portal/internal/policy"
	"portal/internal/service/memstore"
	"portal/internal/validate"
)

var (
	admin    = policy.Actor{ID: 1, Role: models.RoleAdmin}
	resident = policy.Actor{ID: 2, Role: models.RoleResident}
	other    = policy.Actor{ID: 3, Role: models.RoleResident}
	anon     = policy.Anonymous()

	opTime = time.Date(2024, 8, 17, 9, 0, 0, 0, time.UTC)
)

type harness struct {
	t         *testing.T
	store     *memstore.Store
	metrics   *metrics.Metrics
	reports   *ReportService
	articles  *ArticleService
	comments  *CommentService
	dashboard *DashboardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := memstore.New()
	for _, u := range []models.User{
		{ID: 1, Name: "Kades", Email: "kades@desa.id", Role: models.RoleAdmin},
		{ID: 2, Name: "Budi", Email: "budi@desa.id", Role: models.RoleResident},
		{ID: 3, Name: "Siti", Email: "siti@desa.id", Role: models.RoleResident},
	} {
		require.NoError(t, st.Users().Create(context.Background(), &u))
	}

	v := validate.New()
	m := metrics.New(prometheus.NewRegistry())
	log := logrus.New()
	log.SetOutput(io.Discard)
	clock := func() time.Time { return opTime }

	h := &harness{
		t:         t,
		store:     st,
		metrics:   m,
		reports:   NewReportService(st.Reports(), v, m, log),
		articles:  NewArticleService(st.Articles(), st.Comments(), v, m, log),
		comments:  NewCommentService(st.Articles(), st.Comments(), v, m, log),
		dashboard: NewDashboardService(st.Users(), st.Reports(), st.Articles()),
	}
	h.reports.now = clock
	h.articles.now = clock
	h.articles.suffix = func() string { return "abcd1234" }
	h.comments.now = clock
	return h
}

func (h *harness) seedReport(owner int64, status models.ReportStatus, created time.Time) models.Report {
	r := models.Report{
		OwnerID: owner, Title: "Report", Description: "d",
		Category: models.CategoryRoad, Priority: models.PriorityMedium, Status: status,
		CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(h.t, h.store.Reports().Create(context.Background(), &r))
	return r
}

func str(s string) *string { return &s }

func validReport() models.ReportInput {
	return models.ReportInput{
		Title: "Street light out", Description: "Dark since Monday",
		Category: models.CategoryElectricity, Priority: models.PriorityHigh,
	}
}

func TestReportService_CreateAlwaysNew(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r, err := h.reports.Create(ctx, resident, validReport())
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, r.Status)
	assert.Nil(t, r.AdminResponse)
	assert.Nil(t, r.RespondedAt)
	assert.Equal(t, opTime, r.CreatedAt)

	stored, err := h.reports.Get(ctx, resident, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, stored.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ReportsFiled.WithLabelValues("electricity")))
}

func TestReportService_CreateRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.reports.Create(ctx, anon, validReport())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = h.reports.Create(ctx, admin, validReport())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	in := validReport()
	in.Category = "volcano"
	_, err = h.reports.Create(ctx, resident, in)
	ve, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "category")
	assert.Zero(t, h.store.NumReports())
}

func TestReportService_Visibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.seedReport(resident.ID, models.StatusNew, opTime)

	_, err := h.reports.Get(ctx, other, r.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.reports.Get(ctx, anon, r.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	got, err := h.reports.Get(ctx, admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = h.reports.Update(ctx, other, r.ID, models.AdminReportPatch{ReportPatch: models.ReportPatch{Title: str("mine now")}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, h.reports.Delete(ctx, other, r.ID), apperr.ErrNotFound)
}

func TestReportService_ListScoped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedReport(resident.ID, models.StatusNew, opTime.Add(-2*time.Hour))
	h.seedReport(resident.ID, models.StatusDone, opTime.Add(-time.Hour))
	h.seedReport(other.ID, models.StatusNew, opTime)

	mine, err := h.reports.List(ctx, resident, nil, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Total)
	assert.Equal(t, models.StatusDone, mine.Data[0].Status)
	assert.Equal(t, models.DefaultPerPage, mine.PerPage)

	all, err := h.reports.List(ctx, admin, []models.ReportStatus{models.StatusNew}, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	_, err = h.reports.List(ctx, admin, []models.ReportStatus{"finished"}, models.PageRequest{})
	_, ok := apperr.IsValidation(err)
	assert.True(t, ok)

	_, err = h.reports.List(ctx, anon, nil, models.PageRequest{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestReportService_ResidentUpdateStripsTriage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.seedReport(resident.ID, models.StatusNew, opTime.Add(-time.Hour))

	done := models.StatusDone
	out, err := h.reports.Update(ctx, resident, r.ID, models.AdminReportPatch{
		ReportPatch:   models.ReportPatch{Title: str("Street light still out")},
		Status:        &done,
		AdminResponse: str("self-approved"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Street light still out", out.Title)
	assert.Equal(t, models.StatusNew, out.Status)
	assert.Nil(t, out.AdminResponse)
	assert.Nil(t, out.RespondedAt)
}

func TestReportService_ResidentEditAfterTriageForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.seedReport(resident.ID, models.StatusInProgress, opTime.Add(-time.Hour))

	_, err := h.reports.Update(ctx, resident, r.ID, models.AdminReportPatch{ReportPatch: models.ReportPatch{Title: str("x")}})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.ErrorIs(t, h.reports.Delete(ctx, resident, r.ID), apperr.ErrForbidden)
	_, ok := h.store.Report(r.ID)
	assert.True(t, ok)
}

func TestReportService_AdminResponds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.seedReport(resident.ID, models.StatusInProgress, opTime.Add(-time.Hour))

	done := models.StatusDone
	out, err := h.reports.Update(ctx, admin, r.ID, models.AdminReportPatch{Status: &done, AdminResponse: str("Fixed")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, out.Status)
	require.NotNil(t, out.AdminResponse)
	assert.Equal(t, "Fixed", *out.AdminResponse)
	require.NotNil(t, out.RespondedAt)
	assert.Equal(t, opTime, *out.RespondedAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StatusTransitions.WithLabelValues("in_progress", "done")))
}

func TestReportService_AdminInvalidStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.seedReport(resident.ID, models.StatusNew, opTime)

	bogus := models.ReportStatus("closed")
	_, err := h.reports.Update(ctx, admin, r.ID, models.AdminReportPatch{Status: &bogus})
	ve, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "status")
	stored, _ := h.store.Report(r.ID)
	assert.Equal(t, models.StatusNew, stored.Status)
}

func TestReportService_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	mine := h.seedReport(resident.ID, models.StatusNew, opTime)
	triaged := h.seedReport(resident.ID, models.StatusDone, opTime)

	require.NoError(t, h.reports.Delete(ctx, resident, mine.ID))
	require.NoError(t, h.reports.Delete(ctx, admin, triaged.ID))
	assert.Zero(t, h.store.NumReports())

	assert.ErrorIs(t, h.reports.Delete(ctx, admin, 999), apperr.ErrNotFound)
}
