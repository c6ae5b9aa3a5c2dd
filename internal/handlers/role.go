package handlers

import (
	"net/http"

	"fitkids-crm/internal/middleware"
	"fitkids-crm/internal/models"
)

// adminRoles may manage staff accounts and archive records. Super admins
// pass every role check.
var adminRoles = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager}

// IsSuperAdmin returns true if the current user administers every center.
func IsSuperAdmin(r *http.Request) bool {
	actor, ok := middleware.GetActor(r)
	return ok && actor.Global()
}
