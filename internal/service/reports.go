package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"portal/internal/apperr"
	"portal/internal/metrics"
	"portal/internal/models"
	"portal/internal/policy"
	"portal/internal/validate"
)

type ReportService struct {
	reports  ReportRepository
	validate *validate.Validator
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewReportService(reports ReportRepository, v *validate.Validator, m *metrics.Metrics, log logrus.FieldLogger) *ReportService {
	return &ReportService{reports: reports, validate: v, metrics: m, log: log, now: time.Now}
}

// List returns one page of the reports a may see, optionally narrowed to
// some statuses.
func (s *ReportService) List(ctx context.Context, a policy.Actor, statuses []models.ReportStatus, req models.PageRequest) (models.Page[models.Report], error) {
	scope, err := policy.ListReports(a)
	if err != nil {
		return models.Page[models.Report]{}, err
	}
	for _, st := range statuses {
		if !st.Valid() {
			return models.Page[models.Report]{}, invalidStatusFilter()
		}
	}
	reports, total, err := s.reports.List(ctx, models.ReportFilter{Scope: scope, Statuses: statuses}, req)
	if err != nil {
		return models.Page[models.Report]{}, err
	}
	return page(reports, req, total), nil
}

func (s *ReportService) Get(ctx context.Context, a policy.Actor, id int64) (models.Report, error) {
	if _, err := policy.ListReports(a); err != nil {
		return models.Report{}, err
	}
	r, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return models.Report{}, err
	}
	if err := policy.ViewReport(a, r); err != nil {
		return models.Report{}, err
	}
	return r, nil
}

// Create files a new report for resident a. Whatever the input, the report
// starts as new with no admin response.
func (s *ReportService) Create(ctx context.Context, a policy.Actor, in models.ReportInput) (models.Report, error) {
	if err := policy.CreateReport(a); err != nil {
		return models.Report{}, err
	}
	in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return models.Report{}, err
	}
	r, err := policy.NewReport(a, in, s.now())
	if err != nil {
		return models.Report{}, err
	}
	if err := s.reports.Create(ctx, &r); err != nil {
		return models.Report{}, err
	}
	s.metrics.ReportFiled(string(r.Category))
	s.log.WithFields(logrus.Fields{"report_id": r.ID, "user_id": a.ID, "category": r.Category}).Info("report filed")
	return r, nil
}

// Update applies p to report id inside one transaction. For residents the
// triage fields of p are dropped before anything else looks at them.
func (s *ReportService) Update(ctx context.Context, a policy.Actor, id int64, p models.AdminReportPatch) (models.Report, error) {
	if _, err := policy.ListReports(a); err != nil {
		return models.Report{}, err
	}
	if !a.IsAdmin() {
		p.Status = nil
		p.AdminResponse = nil
	}
	p.Normalize()
	if err := s.validate.Struct(p); err != nil {
		return models.Report{}, err
	}

	var from models.ReportStatus
	out, err := s.reports.Update(ctx, id, func(cur models.Report) (models.Report, error) {
		if err := policy.ViewReport(a, cur); err != nil {
			return cur, err
		}
		from = cur.Status
		return policy.ApplyReportUpdate(a, cur, p, s.now())
	})
	if err != nil {
		return models.Report{}, err
	}

	s.metrics.StatusChanged(string(from), string(out.Status))
	entry := s.log.WithFields(logrus.Fields{"report_id": id, "user_id": a.ID})
	if from != out.Status {
		entry = entry.WithFields(logrus.Fields{"from": from, "to": out.Status})
	}
	entry.Info("report updated")
	return out, nil
}

func (s *ReportService) Delete(ctx context.Context, a policy.Actor, id int64) error {
	if _, err := policy.ListReports(a); err != nil {
		return err
	}
	err := s.reports.Delete(ctx, id, func(cur models.Report) error {
		if err := policy.ViewReport(a, cur); err != nil {
			return err
		}
		return policy.DeleteReport(a, cur)
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"report_id": id, "user_id": a.ID}).Info("report deleted")
	return nil
}

func invalidStatusFilter() error {
	return apperr.NewValidationError("status", "The selected status is invalid")
}
