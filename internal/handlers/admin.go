package handlers

import (
	"net/http"

	"fitkids-crm/internal/middleware"
	"fitkids-crm/internal/models"
	"fitkids-crm/internal/service"
)

// POST /api/centers (super admin)
func (h *APIHandler) CreateCenter(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	var in service.CenterInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.svc.CreateCenter(r.Context(), actor, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// GET /api/centers
func (h *APIHandler) ListCenters(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListCenters(r.Context(), actor, opts)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// GET /api/centers/{centerID}
func (h *APIHandler) GetCenter(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetCenter(r.Context(), actor, centerID)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// POST /api/users
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	var in service.UserInput
	if !decode(w, r, &in) {
		return
	}
	// center admins create staff for their own center only
	if !IsSuperAdmin(r) && in.CenterID == nil {
		in.CenterID = actor.CenterID
	}
	u, err := h.svc.CreateUser(r.Context(), actor, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, u)
}

// GET /api/users/{id}
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.svc.GetUser(r.Context(), actor, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, u)
}

func archiveTarget(w http.ResponseWriter, r *http.Request) (models.EntityKind, bool) {
	kind, err := models.ParseEntityKind(r.PathValue("kind"))
	if err != nil {
		badRequest(w, "%v", err)
		return kind, false
	}
	return kind, true
}

// POST /api/centers/{centerID}/archive/{kind}/{id}
func (h *APIHandler) Archive(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	kind, ok := archiveTarget(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.svc.Archive(r.Context(), actor, centerID, kind, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	h.cfg.Debugf("archived %s %s (%d rows)", kind, id, res.Count())
	jsonResponse(w, http.StatusOK, res)
}

// POST /api/centers/{centerID}/unarchive/{kind}/{id}
func (h *APIHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	kind, ok := archiveTarget(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Unarchive(r.Context(), actor, centerID, kind, id); err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}
