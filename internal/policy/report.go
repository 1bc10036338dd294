package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"portal/internal/apperr"
	"portal/internal/models"
)

// ListReports returns the scope of reports the actor may list and aggregate.
func ListReports(a Actor) (models.ReportScope, error) {
	switch {
	case a.IsAdmin():
		return models.ReportScope{All: true}, nil
	case a.IsResident():
		return models.ReportScope{OwnerID: a.ID}, nil
	}
	return models.ReportScope{}, deny(a, apperr.ErrForbidden)
}

func CanViewReport(a Actor, r models.Report) bool {
	switch {
	case a.IsAdmin():
		return true
	case a.IsResident():
		return r.OwnerID == a.ID
	}
	return false
}

// ViewReport hides reports of other residents behind ErrNotFound.
func ViewReport(a Actor, r models.Report) error {
	if CanViewReport(a, r) {
		return nil
	}
	return deny(a, apperr.ErrNotFound)
}

func CanCreateReport(a Actor) bool { return a.IsResident() }

func CreateReport(a Actor) error {
	if CanCreateReport(a) {
		return nil
	}
	return deny(a, apperr.ErrForbidden)
}

// NewReport builds the report a resident files. Status always starts at new
// and the triage fields stay empty.
func NewReport(a Actor, in models.ReportInput, now time.Time) (models.Report, error) {
	if err := CreateReport(a); err != nil {
		return models.Report{}, err
	}
	r := models.Report{
		OwnerID:     a.ID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      models.StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Latitude != nil {
		r.Latitude = coordinate(*in.Latitude)
	}
	if in.Longitude != nil {
		r.Longitude = coordinate(*in.Longitude)
	}
	if in.LocationName != nil {
		r.LocationName = ptr(*in.LocationName)
	}
	return r, nil
}

// CanEditReport: admins always, residents only on their own report while it
// is still new.
func CanEditReport(a Actor, r models.Report) bool {
	switch {
	case a.IsAdmin():
		return true
	case a.IsResident():
		return r.OwnerID == a.ID && r.Status == models.StatusNew
	}
	return false
}

func EditReport(a Actor, r models.Report) error {
	if CanEditReport(a, r) {
		return nil
	}
	return deny(a, apperr.ErrForbidden)
}

func CanDeleteReport(a Actor, r models.Report) bool { return CanEditReport(a, r) }

func DeleteReport(a Actor, r models.Report) error {
	if CanDeleteReport(a, r) {
		return nil
	}
	return deny(a, apperr.ErrForbidden)
}

// ApplyReportUpdate returns r with patch applied as actor a. Residents only
// reach the basic fields; status, admin_response and responded_at are never
// touched for them whatever the patch carries. An admin patch that carries a
// status or a response stamps responded_at with now.
func ApplyReportUpdate(a Actor, r models.Report, p models.AdminReportPatch, now time.Time) (models.Report, error) {
	if err := EditReport(a, r); err != nil {
		return r, err
	}
	out := r
	applyBasicFields(&out, p.ReportPatch)
	if a.IsAdmin() {
		if p.Status != nil {
			out.Status = *p.Status
		}
		if p.AdminResponse != nil {
			out.AdminResponse = ptr(*p.AdminResponse)
		}
		if p.Status != nil || p.AdminResponse != nil {
			out.RespondedAt = ptr(now)
		}
	}
	out.UpdatedAt = now
	return out, nil
}

func applyBasicFields(r *models.Report, p models.ReportPatch) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.Latitude != nil {
		r.Latitude = coordinate(*p.Latitude)
	}
	if p.Longitude != nil {
		r.Longitude = coordinate(*p.Longitude)
	}
	if p.LocationName != nil {
		if *p.LocationName == "" {
			r.LocationName = nil
		} else {
			r.LocationName = ptr(*p.LocationName)
		}
	}
}

// coordinate rounds to the 8 decimal places the reports table stores.
func coordinate(f float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(f).Round(8), Valid: true}
}
