package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Coordinates go out as JSON numbers so a client can send back what it read.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
}

type Report struct {
	ID            int64               `json:"id"`
	OwnerID       int64               `json:"owner_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Category      Category            `json:"category"`
	Priority      Priority            `json:"priority"`
	Status        ReportStatus        `json:"status"`
	Latitude      decimal.NullDecimal `json:"latitude"`
	Longitude     decimal.NullDecimal `json:"longitude"`
	LocationName  *string             `json:"location_name"`
	AdminResponse *string             `json:"admin_response"`
	RespondedAt   *time.Time          `json:"responded_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	OwnerName     string              `json:"owner_name,omitempty"`
}

type Article struct {
	ID          int64         `json:"id"`
	AuthorID    int64         `json:"author_id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Excerpt     *string       `json:"excerpt"`
	Content     string        `json:"content"`
	Status      ArticleStatus `json:"status"`
	PublishedAt *time.Time    `json:"published_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	AuthorName  string        `json:"author_name,omitempty"`
}

type Comment struct {
	ID         int64     `json:"id"`
	ArticleID  int64     `json:"article_id"`
	AuthorID   int64     `json:"author_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	AuthorName string    `json:"author_name,omitempty"`
}

// ReportScope is the subset of reports an actor may list or aggregate.
type ReportScope struct {
	All     bool
	OwnerID int64
}

// ArticleScope is the subset of articles an actor may list or aggregate.
type ArticleScope struct {
	PublishedOnly bool
}

// ReportFilter narrows a report query inside a scope.
type ReportFilter struct {
	Scope    ReportScope
	Statuses []ReportStatus
}

const (
	DefaultPerPage = 10
	MaxPerPage     = 50

	// MaxPage keeps (Page-1)*PerPage inside an int.
	MaxPage = math.MaxInt / MaxPerPage
)

// PageRequest is a 1-based page number and page size.
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p PageRequest) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PerPage
}

type Page[T any] struct {
	Data    []T `json:"data"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}
