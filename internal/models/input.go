package models

import (
	"strings"
	"unicode"
)

// ReportInput is the allow-list of fields a resident supplies when filing a report.
type ReportInput struct {
	Title        string   `json:"title" validate:"required,max=255"`
	Description  string   `json:"description" validate:"required"`
	Category     Category `json:"category" validate:"required,enum"`
	Priority     Priority `json:"priority" validate:"required,enum"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	LocationName *string  `json:"location_name" validate:"omitempty,max=255"`
}

func (in *ReportInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LocationName = trimOptional(in.LocationName)
}

// ReportPatch holds the fields a resident may change on their own report.
// Nil means "leave unchanged".
type ReportPatch struct {
	Title        *string   `json:"title" validate:"omitempty,max=255"`
	Description  *string   `json:"description"`
	Category     *Category `json:"category" validate:"omitempty,enum"`
	Priority     *Priority `json:"priority" validate:"omitempty,enum"`
	Latitude     *float64  `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64  `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	LocationName *string   `json:"location_name" validate:"omitempty,max=255"`
}

func (p *ReportPatch) Normalize() {
	p.Title = trimPresent(p.Title)
	p.Description = trimPresent(p.Description)
	p.LocationName = trimPresent(p.LocationName)
}

// AdminReportPatch extends ReportPatch with the triage fields only an admin
// may set.
type AdminReportPatch struct {
	ReportPatch
	Status        *ReportStatus `json:"status"`
	AdminResponse *string       `json:"admin_response"`
}

func (p *AdminReportPatch) Normalize() {
	p.ReportPatch.Normalize()
	p.AdminResponse = trimPresent(p.AdminResponse)
}

type ArticleInput struct {
	Title   string        `json:"title" validate:"required,max=255"`
	Excerpt *string       `json:"excerpt" validate:"omitempty,max=500"`
	Content string        `json:"content" validate:"required"`
	Status  ArticleStatus `json:"status" validate:"required,enum"`
}

func (in *ArticleInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Excerpt = trimOptional(in.Excerpt)
}

type CommentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (in *CommentInput) Normalize() {
	in.Content = strings.TrimSpace(in.Content)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func (in *RegisterInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Normalize() {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
}

// trimOptional trims s and turns a blank value into nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// trimPresent trims s but keeps a blank value so validation can reject it.
func trimPresent(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// Slugify lowercases title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	s := b.String()
	if r := []rune(s); len(r) > 80 {
		s = strings.TrimRight(string(r[:80]), "-")
	}
	return s
}
