package models

import "fmt"

// Role is the closed set of account roles. The zero value means "no role"
// and only ever appears on anonymous actors.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleResident Role = "resident"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleResident:
		return true
	}
	return false
}

func (r *Role) Scan(src any) error {
	return scanEnum(src, "role", func(s string) bool { *r = Role(s); return r.Valid() })
}

// Category of a report.
type Category string

const (
	CategoryRoad           Category = "road"
	CategoryBridge         Category = "bridge"
	CategoryDrainage       Category = "drainage"
	CategoryElectricity    Category = "electricity"
	CategoryCleanWater     Category = "clean_water"
	CategorySanitation     Category = "sanitation"
	CategoryPublicFacility Category = "public_facility"
	CategoryOther          Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryRoad, CategoryBridge, CategoryDrainage, CategoryElectricity,
	CategoryCleanWater, CategorySanitation, CategoryPublicFacility, CategoryOther,
}

func (c Category) Valid() bool {
	_, err := c.Display()
	return err == nil
}

// Display returns the human readable name. Unknown values are an error
// rather than an "Unknown" label so corrupted rows surface.
func (c Category) Display() (string, error) {
	switch c {
	case CategoryRoad:
		return "Road", nil
	case CategoryBridge:
		return "Bridge", nil
	case CategoryDrainage:
		return "Drainage", nil
	case CategoryElectricity:
		return "Electricity", nil
	case CategoryCleanWater:
		return "Clean Water", nil
	case CategorySanitation:
		return "Sanitation", nil
	case CategoryPublicFacility:
		return "Public Facility", nil
	case CategoryOther:
		return "Other", nil
	}
	return "", fmt.Errorf("unknown category %q", string(c))
}

func (c *Category) Scan(src any) error {
	return scanEnum(src, "category", func(s string) bool { *c = Category(s); return c.Valid() })
}

// Priority of a report.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency}

func (p Priority) Valid() bool {
	_, err := p.Display()
	return err == nil
}

func (p Priority) Display() (string, error) {
	switch p {
	case PriorityLow:
		return "Low", nil
	case PriorityMedium:
		return "Medium", nil
	case PriorityHigh:
		return "High", nil
	case PriorityEmergency:
		return "Emergency", nil
	}
	return "", fmt.Errorf("unknown priority %q", string(p))
}

func (p *Priority) Scan(src any) error {
	return scanEnum(src, "priority", func(s string) bool { *p = Priority(s); return p.Valid() })
}

// ReportStatus is the triage state of a report.
type ReportStatus string

const (
	StatusNew         ReportStatus = "new"
	StatusUnderReview ReportStatus = "under_review"
	StatusInProgress  ReportStatus = "in_progress"
	StatusDone        ReportStatus = "done"
	StatusRejected    ReportStatus = "rejected"
)

var ReportStatuses = []ReportStatus{StatusNew, StatusUnderReview, StatusInProgress, StatusDone, StatusRejected}

// PendingStatuses are the statuses a resident still waits on.
var PendingStatuses = []ReportStatus{StatusNew, StatusUnderReview, StatusInProgress}

func (s ReportStatus) Valid() bool {
	_, err := s.Display()
	return err == nil
}

func (s ReportStatus) Display() (string, error) {
	switch s {
	case StatusNew:
		return "New", nil
	case StatusUnderReview:
		return "Under Review", nil
	case StatusInProgress:
		return "In Progress", nil
	case StatusDone:
		return "Done", nil
	case StatusRejected:
		return "Rejected", nil
	}
	return "", fmt.Errorf("unknown report status %q", string(s))
}

func (s *ReportStatus) Scan(src any) error {
	return scanEnum(src, "report status", func(v string) bool { *s = ReportStatus(v); return s.Valid() })
}

// ArticleStatus is the publication state of an article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
)

func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleDraft, ArticlePublished:
		return true
	}
	return false
}

func (s *ArticleStatus) Scan(src any) error {
	return scanEnum(src, "article status", func(v string) bool { *s = ArticleStatus(v); return s.Valid() })
}

func scanEnum(src any, name string, set func(string) bool) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("scan %s: unexpected NULL", name)
	default:
		return fmt.Errorf("scan %s: unsupported type %T", name, src)
	}
	if !set(s) {
		return fmt.Errorf("scan %s: unknown stored value %q", name, s)
	}
	return nil
}
