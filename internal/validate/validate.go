// Package validate wraps go-playground/validator with the portal's custom
// rules and turns failures into field-level apperr.ValidationError values.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"portal/internal/apperr"
	"portal/internal/models"
)

// Validator validates request inputs.
type Validator struct {
	validate *validator.Validate
}

type enumValue interface{ Valid() bool }

func New() *Validator {
	v := validator.New()

	// report errors under the JSON names clients send
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterValidation("enum", validateEnum)
	v.RegisterStructValidation(reportPatchLevel, models.ReportPatch{})
	v.RegisterStructValidation(adminReportPatchLevel, models.AdminReportPatch{})

	return &Validator{validate: v}
}

// Struct validates s and returns a *apperr.ValidationError on failure.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = Message(fe)
	}
	return &apperr.ValidationError{Fields: fields}
}

func validateEnum(fl validator.FieldLevel) bool {
	e, ok := fl.Field().Interface().(enumValue)
	return ok && e.Valid()
}

// present-but-blank strings are rejected; omitempty alone would let them through
func reportPatchLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.ReportPatch)
	if p.Title != nil && *p.Title == "" {
		sl.ReportError(p.Title, "title", "Title", "required", "")
	}
	if p.Description != nil && *p.Description == "" {
		sl.ReportError(p.Description, "description", "Description", "required", "")
	}
}

func adminReportPatchLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.AdminReportPatch)
	if p.Status != nil && !p.Status.Valid() {
		sl.ReportError(p.Status, "status", "Status", "enum", "")
	}
}

// Message renders a single field error in English.
func Message(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address", field)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not exceed %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s field must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("The %s field must not be greater than %s", field, fe.Param())
	case "enum":
		return fmt.Sprintf("The selected %s is invalid", field)
	default:
		return fmt.Sprintf("The %s field is invalid", field)
	}
}
