package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/metrics"
	"portal/internal/models"
	"portal/internal/service"
	"portal/internal/util"
)

// Check is one dependency probed by the health check.
type Check func(ctx context.Context) error

type Deps struct {
	Auth      *auth.Service
	Reports   *service.ReportService
	Articles  *service.ArticleService
	Comments  *service.CommentService
	Dashboard *service.DashboardService
	Metrics   *metrics.Metrics
	Log       logrus.FieldLogger
	Checks    map[string]Check
	// RequestTimeout bounds every request; zero disables it.
	RequestTimeout time.Duration
}

type Server struct {
	auth      *auth.Service
	reports   *service.ReportService
	articles  *service.ArticleService
	comments  *service.CommentService
	dashboard *service.DashboardService
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	checks    map[string]Check
	now       func() time.Time

	Router  chi.Router
	handler http.Handler
}

func NewServer(d Deps) *Server {
	s := &Server{
		auth:      d.Auth,
		reports:   d.Reports,
		articles:  d.Articles,
		comments:  d.Comments,
		dashboard: d.Dashboard,
		metrics:   d.Metrics,
		log:       d.Log,
		checks:    d.Checks,
		now:       time.Now,
		Router:    chi.NewRouter(),
	}

	r := s.Router
	r.Use(middleware.RequestID)
	r.Use(WithAccessLog(s.log))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/health-check", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleHome)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/articles", s.handleArticleList)
		r.Get("/articles/{ref}", s.handleArticleShow)
		r.Get("/reports/options", s.handleReportOptions)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/me", s.handleMe)
			r.Get("/dashboard", s.handleDashboard)

			r.Get("/reports", s.handleReportList)
			r.Post("/reports", s.handleReportCreate)
			r.Get("/reports/{id}", s.handleReportShow)
			r.Put("/reports/{id}", s.handleReportUpdate)
			r.Delete("/reports/{id}", s.handleReportDelete)

			r.Post("/admin/articles", s.handleArticleCreate)
			r.Put("/admin/articles/{id}", s.handleArticleUpdate)
			r.Delete("/admin/articles/{id}", s.handleArticleDelete)

			r.Post("/articles/{ref}/comments", s.handleCommentCreate)
			r.Delete("/comments/{id}", s.handleCommentDelete)
		})
	})

	s.handler = WithTimeout(r, d.RequestTimeout)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

// errors

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := apperr.IsValidation(err); ok {
		util.JSON(w, http.StatusUnprocessableEntity, errorBody{Message: ve.First(), Errors: ve.Fields})
		return
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		util.JSON(w, http.StatusNotFound, errorBody{Message: "Not found"})
	case errors.Is(err, apperr.ErrForbidden):
		util.JSON(w, http.StatusForbidden, errorBody{Message: "This action is unauthorized"})
	case errors.Is(err, apperr.ErrUnauthenticated):
		util.JSON(w, http.StatusUnauthorized, errorBody{Message: "Unauthenticated"})
	case errors.Is(err, apperr.ErrConflict):
		util.JSON(w, http.StatusConflict, errorBody{Message: "The resource was changed by another request"})
	default:
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error("request failed")
		util.JSON(w, http.StatusInternalServerError, errorBody{Message: "Server error"})
	}
}

// request helpers

// pathID parses an integer route parameter. Anything else cannot name a row,
// so it is a 404.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ErrNotFound
	}
	return id, nil
}

// pageRequest reads page and per_page; unparsable values fall back to the
// defaults.
func pageRequest(r *http.Request) models.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return models.PageRequest{Page: page, PerPage: perPage}.Normalize()
}

// statusFilter accepts ?status=a&status=b as well as ?status=a,b.
func statusFilter(r *http.Request) []models.ReportStatus {
	var out []models.ReportStatus
	for _, v := range r.URL.Query()["status"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, models.ReportStatus(part))
			}
		}
	}
	return out
}

// health

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.log.WithField("check", name).WithError(err).Warn("health check failed")
			checks[name] = "down"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	util.JSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
		"checks":    checks,
	})
}

// pages

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.dashboard.Home(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusOK, home)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard.Dashboard(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusOK, d)
}

// auth

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := util.Decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.auth.Register(r.Context(), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	// a fresh account is signed in straight away
	sess, u, err := s.auth.Login(r.Context(), models.LoginInput{Email: in.Email, Password: in.Password})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setSessionCookie(w, sess.ID, sess.ExpiresAt)
	util.JSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := util.Decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, u, err := s.auth.Login(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setSessionCookie(w, sess.ID, sess.ExpiresAt)
	util.JSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := s.auth.Logout(r.Context(), c.Value); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	util.JSON(w, http.StatusOK, map[string]any{"user": u})
}

// reports

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (s *Server) handleReportOptions(w http.ResponseWriter, r *http.Request) {
	var categories, priorities, statuses []option
	for _, c := range models.Categories {
		label, _ := c.Display()
		categories = append(categories, option{string(c), label})
	}
	for _, p := range models.Priorities {
		label, _ := p.Display()
		priorities = append(priorities, option{string(p), label})
	}
	for _, st := range models.ReportStatuses {
		label, _ := st.Display()
		statuses = append(statuses, option{string(st), label})
	}
	util.JSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"priorities": priorities,
		"statuses":   statuses,
	})
}

func (s *Server) handleReportList(w http.ResponseWriter, r *http.Request) {
	p, err := s.reports.List(r.Context(), auth.ActorFrom(r.Context()), statusFilter(r), pageRequest(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusOK, p)
}

func (s *Server) handleReportCreate(w http.ResponseWriter, r *http.Request) {
	var in models.ReportInput
	if err := util.Decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.reports.Create(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusCreated, rep)
}

func (s *Server) handleReportShow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.reports.Get(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusOK, rep)
}

func (s *Server) handleReportUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var p models.AdminReportPatch
	if err := util.Decode(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.reports.Update(r.Context(), auth.ActorFrom(r.Context()), id, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusOK, rep)
}

func (s *Server) handleReportDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.reports.Delete(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// articles

func (s *Server) handleArticleList(w http.ResponseWriter, r *http.Request) {
	p, err := s.articles.List(r.Context(), auth.ActorFrom(r.Context()), pageRequest(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusOK, p)
}

// handleArticleShow accepts either the numeric id or the slug.
func (s *Server) handleArticleShow(w http.ResponseWriter, r *http.Request) {
	a, err := s.articles.Get(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusOK, a)
}

func (s *Server) handleArticleCreate(w http.ResponseWriter, r *http.Request) {
	var in models.ArticleInput
	if err := util.Decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.articles.Create(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusCreated, a)
}

func (s *Server) handleArticleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in models.ArticleInput
	if err := util.Decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.articles.Update(r.Context(), auth.ActorFrom(r.Context()), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	util.JSON(w, http.StatusOK, a)
}

func (s *Server) handleArticleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.articles.Delete(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// comments

func (s *Server) handleCommentCreate(w http.ResponseWriter, r *http.Request) {
	articleID, err := pathID(r, "ref")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in models.CommentInput
	if err := util.Decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.comments.Create(r.Context(), auth.ActorFrom(r.Context()), articleID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u, ok := auth.UserFrom(r.Context()); ok {
		c.AuthorName = u.Name
	}
	util.JSON(w, http.StatusCreated, c)
}

func (s *Server) handleCommentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.comments.Delete(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
