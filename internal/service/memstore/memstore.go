// Package memstore keeps users, sessions, reports, articles and comments in
// memory, with the same ordering and scoping rules as the Postgres
// repositories. Tests run the services and the HTTP layer on it.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/models"
)

type Store struct {
	mu       sync.Mutex
	users    map[int64]models.User
	reports  map[int64]models.Report
	articles map[int64]models.Article
	comments map[int64]models.Comment
	sessions map[string]models.Session
	lastID   int64
}

func New() *Store {
	return &Store{
		sessions: map[string]models.Session{},
		users:    map[int64]models.User{},
		reports:  map[int64]models.Report{},
		articles: map[int64]models.Article{},
		comments: map[int64]models.Comment{},
	}
}

func (m *Store) nextID() int64 {
	m.lastID++
	return m.lastID
}

func (m *Store) Users() Users       { return Users{m} }
func (m *Store) Sessions() Sessions { return Sessions{m} }
func (m *Store) Reports() Reports   { return Reports{m} }
func (m *Store) Articles() Articles { return Articles{m} }
func (m *Store) Comments() Comments { return Comments{m} }

// Report returns the stored copy of report id.
func (m *Store) Report(id int64) (models.Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	return r, ok
}

func (m *Store) NumReports() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

func (m *Store) NumComments() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.comments)
}

type Users struct{ *Store }

func (m Users) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email {
			return apperr.ErrDuplicate
		}
	}
	if u.ID == 0 {
		u.ID = m.nextID()
	} else if u.ID > m.lastID {
		m.lastID = u.ID
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = *u
	return nil
}

func (m Users) GetByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (m Users) GetByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperr.ErrNotFound
}

func (m Users) CountByRole(_ context.Context, role models.Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type Sessions struct{ *Store }

func (m Sessions) Create(_ context.Context, userID int64, lifetime time.Duration) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, old := range m.sessions {
		if old.UserID == userID {
			delete(m.sessions, id)
		}
	}
	sess := models.Session{ID: uuid.NewString(), UserID: userID, ExpiresAt: time.Now().Add(lifetime)}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m Sessions) Get(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return models.Session{}, auth.ErrNoSession
	}
	return sess, nil
}

func (m Sessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type Reports struct{ *Store }

func inReportFilter(r models.Report, f models.ReportFilter) bool {
	if !f.Scope.All && r.OwnerID != f.Scope.OwnerID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

func (m Reports) matching(f models.ReportFilter) []models.Report {
	var out []models.Report
	for _, r := range m.reports {
		if inReportFilter(r, f) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m Reports) Create(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID()
	m.reports[r.ID] = *r
	return nil
}

func (m Reports) GetByID(_ context.Context, id int64) (models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return models.Report{}, apperr.ErrNotFound
	}
	return r, nil
}

func (m Reports) List(_ context.Context, f models.ReportFilter, req models.PageRequest) ([]models.Report, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(f)
	req = req.Normalize()
	lo := min(req.Offset(), len(all))
	hi := min(lo+req.PerPage, len(all))
	return all[lo:hi], len(all), nil
}

func (m Reports) Recent(_ context.Context, scope models.ReportScope, limit int) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(models.ReportFilter{Scope: scope})
	return all[:min(limit, len(all))], nil
}

func (m Reports) Count(_ context.Context, f models.ReportFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(f)), nil
}

func (m Reports) CountByStatus(_ context.Context, scope models.ReportScope) (map[models.ReportStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[models.ReportStatus]int{}
	for _, s := range models.ReportStatuses {
		out[s] = 0
	}
	for _, r := range m.matching(models.ReportFilter{Scope: scope}) {
		out[r.Status]++
	}
	return out, nil
}

func (m Reports) CountByCategory(_ context.Context, scope models.ReportScope) (map[models.Category]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[models.Category]int{}
	for _, c := range models.Categories {
		out[c] = 0
	}
	for _, r := range m.matching(models.ReportFilter{Scope: scope}) {
		out[r.Category]++
	}
	return out, nil
}

func (m Reports) Update(_ context.Context, id int64, apply func(models.Report) (models.Report, error)) (models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reports[id]
	if !ok {
		return models.Report{}, apperr.ErrNotFound
	}
	next, err := apply(cur)
	if err != nil {
		return models.Report{}, err
	}
	m.reports[id] = next
	return next, nil
}

func (m Reports) Delete(_ context.Context, id int64, check func(models.Report) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reports[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if err := check(cur); err != nil {
		return err
	}
	delete(m.reports, id)
	return nil
}

type Articles struct{ *Store }

func (m Articles) matching(scope models.ArticleScope) []models.Article {
	var out []models.Article
	for _, a := range m.articles {
		if !scope.PublishedOnly || a.Status == models.ArticlePublished {
			out = append(out, a)
		}
	}
	key := func(a models.Article) time.Time {
		if scope.PublishedOnly && a.PublishedAt != nil {
			return *a.PublishedAt
		}
		return a.CreatedAt
	}
	sort.Slice(out, func(i, j int) bool {
		if ki, kj := key(out[i]), key(out[j]); !ki.Equal(kj) {
			return ki.After(kj)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m Articles) Create(_ context.Context, a *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.articles {
		if other.Slug == a.Slug {
			return apperr.ErrDuplicate
		}
	}
	a.ID = m.nextID()
	m.articles[a.ID] = *a
	return nil
}

func (m Articles) GetByID(_ context.Context, id int64) (models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return models.Article{}, apperr.ErrNotFound
	}
	return a, nil
}

func (m Articles) GetBySlug(_ context.Context, slug string) (models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return models.Article{}, apperr.ErrNotFound
}

func (m Articles) List(_ context.Context, scope models.ArticleScope, req models.PageRequest) ([]models.Article, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(scope)
	req = req.Normalize()
	lo := min(req.Offset(), len(all))
	hi := min(lo+req.PerPage, len(all))
	return all[lo:hi], len(all), nil
}

func (m Articles) Recent(_ context.Context, scope models.ArticleScope, limit int) ([]models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(scope)
	return all[:min(limit, len(all))], nil
}

func (m Articles) Count(_ context.Context, scope models.ArticleScope) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(scope)), nil
}

func (m Articles) Update(_ context.Context, id int64, apply func(models.Article) (models.Article, error)) (models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.articles[id]
	if !ok {
		return models.Article{}, apperr.ErrNotFound
	}
	next, err := apply(cur)
	if err != nil {
		return models.Article{}, err
	}
	m.articles[id] = next
	return next, nil
}

func (m Articles) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.articles[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.articles, id)
	for cid, c := range m.comments {
		if c.ArticleID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

type Comments struct{ *Store }

func (m Comments) Create(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID()
	m.comments[c.ID] = *c
	return nil
}

func (m Comments) ListByArticle(_ context.Context, articleID int64) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Comment
	for _, c := range m.comments {
		if c.ArticleID == articleID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m Comments) Delete(_ context.Context, id int64, check func(models.Comment) error) (models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return models.Comment{}, apperr.ErrNotFound
	}
	if err := check(c); err != nil {
		return models.Comment{}, err
	}
	delete(m.comments, id)
	return c, nil
}
