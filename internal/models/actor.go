package models

import "github.com/google/uuid"

// Actor is the authenticated staff member behind a mutation.
type Actor struct {
	UserID   uuid.UUID
	Role     Role
	CenterID *uuid.UUID
}

// SystemActor is used by scheduled jobs that are not tied to a person.
var SystemActor = Actor{Role: RoleSuperAdmin}

// Global reports whether the actor may work across all centers.
func (a Actor) Global() bool { return a.Role == RoleSuperAdmin }

// CanAccess reports whether the actor may read or write the center's data.
func (a Actor) CanAccess(centerID uuid.UUID) bool {
	if a.Global() {
		return true
	}
	return a.CenterID != nil && *a.CenterID == centerID
}

// HasRole reports whether the actor holds one of roles. Super admins always do.
func (a Actor) HasRole(roles ...Role) bool {
	if a.Global() {
		return true
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Ref returns the user id for created_by/updated_by columns.
func (a Actor) Ref() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
