package service

import (
	"fitkids-crm/internal/models"

	"github.com/google/uuid"
)

// Role groups used by the operations below. Super admins pass every check.
var (
	leadRoles       = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager, models.RoleCounselor}
	introRoles      = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager, models.RoleCounselor, models.RoleTrainer}
	enrollmentRoles = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager, models.RoleCounselor}
	billingRoles    = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager}
	scheduleRoles   = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager}
	attendanceRoles = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager, models.RoleTrainer}
	progressRoles   = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager, models.RoleTrainer}
	familyRoles     = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager, models.RoleCounselor}
	curriculumRoles = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager}
	archiveRoles    = []models.Role{models.RoleCenterAdmin, models.RoleCenterManager}
	userAdminRoles  = []models.Role{models.RoleCenterAdmin}
)

// authorize rejects actors scoped to another center before any data is read,
// so callers never learn whether a record of that center exists.
func authorize(actor models.Actor, centerID uuid.UUID, roles ...models.Role) error {
	if !actor.Role.Valid() {
		return models.Forbiddenf("unknown role %q", actor.Role)
	}
	if !actor.CanAccess(centerID) {
		return models.Forbiddenf("no access to center %s", centerID)
	}
	if len(roles) > 0 && !actor.HasRole(roles...) {
		return models.Forbiddenf("role %s may not perform this action", actor.Role)
	}
	return nil
}

func requireGlobal(actor models.Actor) error {
	if !actor.Global() {
		return models.Forbiddenf("only %s may manage shared records", models.RoleSuperAdmin)
	}
	return nil
}
