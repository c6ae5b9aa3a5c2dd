package handlers

import (
	"net/http"

	"fitkids-crm/internal/middleware"
	"fitkids-crm/internal/service"
)

// Class types and curricula may be global, so their write routes are not
// nested under a center. The owning center travels in the body.

// POST /api/class-types
func (h *APIHandler) CreateClassType(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	var in service.ClassTypeInput
	if !decode(w, r, &in) {
		return
	}
	ct, err := h.svc.CreateClassType(r.Context(), actor, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, ct)
}

// POST /api/curricula
func (h *APIHandler) CreateCurriculum(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	var in service.CurriculumInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.svc.CreateCurriculum(r.Context(), actor, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// GET /api/curricula/{id} returns the curriculum with its skills, categories
// and levels.
func (h *APIHandler) GetCurriculumTree(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	tree, err := h.svc.GetCurriculumTree(r.Context(), actor, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, tree)
}

// POST /api/curricula/{id}/skills
func (h *APIHandler) AddSkill(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.SkillInput
	if !decode(w, r, &in) {
		return
	}
	sk, err := h.svc.AddSkill(r.Context(), actor, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, sk)
}

// POST /api/curricula/{id}/categories
func (h *APIHandler) AddActivityCategory(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.CategoryInput
	if !decode(w, r, &in) {
		return
	}
	cat, err := h.svc.AddActivityCategory(r.Context(), actor, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, cat)
}

// POST /api/categories/{id}/levels
func (h *APIHandler) AddProgressionLevel(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r)
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.LevelInput
	if !decode(w, r, &in) {
		return
	}
	lvl, err := h.svc.AddProgressionLevel(r.Context(), actor, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, lvl)
}

// GET /api/centers/{centerID}/curricula lists shared curricula plus the
// center's own.
func (h *APIHandler) ListCurricula(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListCurricula(r.Context(), actor, centerID, opts)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// PUT /api/centers/{centerID}/batches/{id}/mapping
func (h *APIHandler) MapBatch(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.BatchMappingInput
	if !decode(w, r, &in) {
		return
	}
	m, err := h.svc.MapBatch(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, m)
}

// GET /api/centers/{centerID}/batches/{id}/skills
func (h *APIHandler) BatchSkills(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	skills, err := h.svc.BatchSkills(r.Context(), actor, centerID, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, skills)
}

// PUT /api/centers/{centerID}/children/{id}/skills
func (h *APIHandler) UpdateSkillProgress(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.SkillProgressInput
	if !decode(w, r, &in) {
		return
	}
	sp, err := h.svc.UpdateSkillProgress(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, sp)
}

// GET /api/centers/{centerID}/children/{id}/skills
func (h *APIHandler) ListSkillProgress(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListSkillProgress(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// POST /api/centers/{centerID}/children/{id}/levels
func (h *APIHandler) RecordLevelAttainment(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.LevelAttainmentInput
	if !decode(w, r, &in) {
		return
	}
	la, err := h.svc.RecordLevelAttainment(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, la)
}

// GET /api/centers/{centerID}/children/{id}/progress
func (h *APIHandler) GetChildProgress(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetChildProgress(r.Context(), actor, centerID, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// POST /api/centers/{centerID}/children/{id}/report-cards
func (h *APIHandler) GenerateReportCard(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.ReportCardInput
	if !decodeOptional(w, r, &in) {
		return
	}
	rc, err := h.svc.GenerateReportCard(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, rc)
}

// GET /api/centers/{centerID}/children/{id}/report-cards
func (h *APIHandler) ListReportCards(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListReportCards(r.Context(), actor, centerID, id, opts)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// GET /api/centers/{centerID}/report-cards/{id}
func (h *APIHandler) GetReportCard(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	rc, err := h.svc.GetReportCard(r.Context(), actor, centerID, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, rc)
}
