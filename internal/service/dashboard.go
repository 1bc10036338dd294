package service

import (
	"context"

	"portal/internal/models"
	"portal/internal/policy"
)

const (
	dashboardRecentReports = 5
	homeRecentArticles     = 3
	homeRecentReports      = 5
)

type AdminStats struct {
	TotalReports   int `json:"total_reports"`
	TotalResidents int `json:"total_residents"`
	TotalArticles  int `json:"total_articles"`
	PendingReports int `json:"pending_reports"`
}

type ResidentStats struct {
	TotalReports     int `json:"total_reports"`
	CompletedReports int `json:"completed_reports"`
	PendingReports   int `json:"pending_reports"`
}

// Dashboard is the admin or the resident dashboard; exactly one of Admin and
// Resident is set. ReportsByCategory is only filled for admins.
type Dashboard struct {
	Role              models.Role                 `json:"role"`
	Admin             *AdminStats                 `json:"admin_stats,omitempty"`
	Resident          *ResidentStats              `json:"resident_stats,omitempty"`
	ReportsByStatus   map[models.ReportStatus]int `json:"reports_by_status"`
	ReportsByCategory map[models.Category]int     `json:"reports_by_category,omitempty"`
	RecentReports     []models.Report             `json:"recent_reports"`
}

// HomeStats counts what the visitor may see. Report counts stay nil for
// anonymous visitors.
type HomeStats struct {
	PublishedArticles int  `json:"published_articles"`
	TotalReports      *int `json:"total_reports,omitempty"`
	PendingReports    *int `json:"pending_reports,omitempty"`
	CompletedReports  *int `json:"completed_reports,omitempty"`
}

type Home struct {
	Articles      []models.Article `json:"articles"`
	RecentReports []models.Report  `json:"recent_reports"`
	Stats         HomeStats        `json:"stats"`
}

// DashboardService computes read-only aggregates. Every figure is taken
// inside the scope the policy grants the actor for listing.
type DashboardService struct {
	users    UserRepository
	reports  ReportRepository
	articles ArticleRepository
}

func NewDashboardService(users UserRepository, reports ReportRepository, articles ArticleRepository) *DashboardService {
	return &DashboardService{users: users, reports: reports, articles: articles}
}

func (s *DashboardService) AdminStats(ctx context.Context) (AdminStats, error) {
	var (
		st  AdminStats
		err error
	)
	all := models.ReportFilter{Scope: models.ReportScope{All: true}}
	if st.TotalReports, err = s.reports.Count(ctx, all); err != nil {
		return AdminStats{}, err
	}
	if st.TotalResidents, err = s.users.CountByRole(ctx, models.RoleResident); err != nil {
		return AdminStats{}, err
	}
	if st.TotalArticles, err = s.articles.Count(ctx, models.ArticleScope{}); err != nil {
		return AdminStats{}, err
	}
	all.Statuses = []models.ReportStatus{models.StatusNew}
	if st.PendingReports, err = s.reports.Count(ctx, all); err != nil {
		return AdminStats{}, err
	}
	return st, nil
}

func (s *DashboardService) ReportsByStatus(ctx context.Context, scope models.ReportScope) (map[models.ReportStatus]int, error) {
	return s.reports.CountByStatus(ctx, scope)
}

func (s *DashboardService) ReportsByCategory(ctx context.Context, scope models.ReportScope) (map[models.Category]int, error) {
	return s.reports.CountByCategory(ctx, scope)
}

func (s *DashboardService) ResidentStats(ctx context.Context, a policy.Actor) (ResidentStats, error) {
	scope, err := policy.ListReports(a)
	if err != nil {
		return ResidentStats{}, err
	}
	return s.scopedStats(ctx, scope)
}

func (s *DashboardService) scopedStats(ctx context.Context, scope models.ReportScope) (ResidentStats, error) {
	var (
		st  ResidentStats
		err error
	)
	if st.TotalReports, err = s.reports.Count(ctx, models.ReportFilter{Scope: scope}); err != nil {
		return ResidentStats{}, err
	}
	done := models.ReportFilter{Scope: scope, Statuses: []models.ReportStatus{models.StatusDone}}
	if st.CompletedReports, err = s.reports.Count(ctx, done); err != nil {
		return ResidentStats{}, err
	}
	pending := models.ReportFilter{Scope: scope, Statuses: models.PendingStatuses}
	if st.PendingReports, err = s.reports.Count(ctx, pending); err != nil {
		return ResidentStats{}, err
	}
	return st, nil
}

// RecentReports returns the newest reports in scope, ties broken by id.
func (s *DashboardService) RecentReports(ctx context.Context, scope models.ReportScope, limit int) ([]models.Report, error) {
	out, err := s.reports.Recent(ctx, scope, limit)
	if out == nil {
		out = []models.Report{}
	}
	return out, err
}

func (s *DashboardService) RecentArticles(ctx context.Context, publishedOnly bool, limit int) ([]models.Article, error) {
	out, err := s.articles.Recent(ctx, models.ArticleScope{PublishedOnly: publishedOnly}, limit)
	if out == nil {
		out = []models.Article{}
	}
	return out, err
}

func (s *DashboardService) Dashboard(ctx context.Context, a policy.Actor) (Dashboard, error) {
	scope, err := policy.ListReports(a)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{Role: a.Role}

	if a.IsAdmin() {
		st, err := s.AdminStats(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		d.Admin = &st
		if d.ReportsByCategory, err = s.ReportsByCategory(ctx, scope); err != nil {
			return Dashboard{}, err
		}
	} else {
		st, err := s.scopedStats(ctx, scope)
		if err != nil {
			return Dashboard{}, err
		}
		d.Resident = &st
	}

	if d.ReportsByStatus, err = s.ReportsByStatus(ctx, scope); err != nil {
		return Dashboard{}, err
	}
	if d.RecentReports, err = s.RecentReports(ctx, scope, dashboardRecentReports); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Home is the landing page: the latest published articles for everyone, and
// recent reports with their counts for signed-in users.
func (s *DashboardService) Home(ctx context.Context, a policy.Actor) (Home, error) {
	var (
		h   Home
		err error
	)
	published := models.ArticleScope{PublishedOnly: true}
	if h.Articles, err = s.RecentArticles(ctx, true, homeRecentArticles); err != nil {
		return Home{}, err
	}
	if h.Stats.PublishedArticles, err = s.articles.Count(ctx, published); err != nil {
		return Home{}, err
	}
	h.RecentReports = []models.Report{}

	scope, err := policy.ListReports(a)
	if err != nil {
		// anonymous visitors see articles only
		return h, nil
	}
	if h.RecentReports, err = s.RecentReports(ctx, scope, homeRecentReports); err != nil {
		return Home{}, err
	}
	st, err := s.scopedStats(ctx, scope)
	if err != nil {
		return Home{}, err
	}
	h.Stats.TotalReports = &st.TotalReports
	h.Stats.PendingReports = &st.PendingReports
	h.Stats.CompletedReports = &st.CompletedReports
	return h, nil
}
