// Package policy decides who may see and change reports, articles and
// comments, and computes the field changes an allowed action implies.
// Nothing here touches storage; callers load the resource, ask the policy,
// and persist what it returns.
package policy

import (
	"portal/internal/apperr"
	"portal/internal/models"
)

// Actor is the identity an action is performed as. The zero value is anonymous.
type Actor struct {
	ID   int64
	Role models.Role
}

func Anonymous() Actor { return Actor{} }

func (a Actor) Authenticated() bool { return a.ID != 0 && a.Role.Valid() }

func (a Actor) IsAdmin() bool { return a.Authenticated() && a.Role == models.RoleAdmin }

func (a Actor) IsResident() bool { return a.Authenticated() && a.Role == models.RoleResident }

// deny picks the error for a refused action: anonymous actors are asked to
// authenticate, everyone else gets fallback.
func deny(a Actor, fallback error) error {
	if !a.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	return fallback
}

func ptr[T any](v T) *T { return &v }
