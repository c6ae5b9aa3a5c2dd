package handlers

import (
	"net/http"

	"fitkids-crm/internal/service"
	"fitkids-crm/internal/store"
)

// POST /api/centers/{centerID}/parents
func (h *APIHandler) CreateParent(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	var in service.ParentInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.svc.CreateParent(r.Context(), actor, centerID, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, p)
}

// GET /api/centers/{centerID}/parents/{id}
func (h *APIHandler) GetParent(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetParent(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// POST /api/centers/{centerID}/children
func (h *APIHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	var in service.ChildInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.svc.CreateChild(r.Context(), actor, centerID, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// GET /api/centers/{centerID}/children?q=
func (h *APIHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	children, err := h.svc.ListChildren(r.Context(), actor, centerID, store.ChildFilter{
		ListOptions: opts,
		Search:      r.URL.Query().Get("q"),
	})
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, children)
}

// GET /api/centers/{centerID}/children/{id}
func (h *APIHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.GetChild(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// POST /api/centers/{centerID}/family-links
func (h *APIHandler) LinkParent(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	var in service.FamilyLinkInput
	if !decode(w, r, &in) {
		return
	}
	link, err := h.svc.LinkParent(r.Context(), actor, centerID, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, link)
}

// GET /api/centers/{centerID}/children/{id}/family-links
func (h *APIHandler) ListFamilyLinks(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	links, err := h.svc.ListFamilyLinks(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, links)
}

// PUT /api/centers/{centerID}/children/{id}/primary-contact/{linkID}
func (h *APIHandler) SetPrimaryContact(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	childID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	linkID, ok := pathUUID(w, r, "linkID")
	if !ok {
		return
	}
	if err := h.svc.SetPrimaryContact(r.Context(), actor, centerID, childID, linkID); err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

// GET /api/centers/{centerID}/primary-contacts/violations
func (h *APIHandler) VerifyPrimaryContacts(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	violations, err := h.svc.VerifyPrimaryContacts(r.Context(), actor, centerID)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, violations)
}
