package handlers

import (
	"net/http"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/service"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
)

type noteRequest struct {
	Note string `json:"note"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type assignRequest struct {
	UserID *uuid.UUID `json:"user_id"`
}

// leadResponse decorates a lead with its board colours and next step.
type leadResponse struct {
	*models.Lead
	Display    models.StatusDisplayInfo `json:"display"`
	NextAction string                   `json:"next_action"`
}

func newLeadResponse(l *models.Lead) leadResponse {
	return leadResponse{
		Lead:       l,
		Display:    models.GetStatusDisplayInfo(l.Status),
		NextAction: models.GetNextAction(l.Status),
	}
}

// POST /api/centers/{centerID}/leads
func (h *APIHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	var in service.LeadInput
	if !decode(w, r, &in) {
		return
	}
	lead, err := h.svc.CreateLead(r.Context(), actor, centerID, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, newLeadResponse(lead))
}

// GET /api/centers/{centerID}/leads?status=&assigned_to=&q=
func (h *APIHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	f := store.LeadFilter{ListOptions: opts, Search: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := models.ParseLeadStatus(v)
		if err != nil {
			writeError(h.cfg, w, r, err)
			return
		}
		f.Status = &status
	}
	if f.AssignedTo, ok = queryUUID(w, r, "assigned_to"); !ok {
		return
	}

	items, err := h.svc.ListLeads(r.Context(), actor, centerID, f)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	response := make([]leadResponse, 0, len(items))
	for _, it := range items {
		lr := newLeadResponse(it.Lead)
		lr.NextAction = it.NextAction
		response = append(response, lr)
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /api/centers/{centerID}/leads/{id}
func (h *APIHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.svc.GetLead(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"lead":         newLeadResponse(detail.Lead),
		"intro_visits": detail.Visits,
		"follow_ups":   detail.FollowUps,
		"activities":   detail.Activities,
	})
}

// POST /api/centers/{centerID}/leads/{id}/contact
func (h *APIHandler) MarkContacted(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req noteRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	lead, err := h.svc.MarkContacted(r.Context(), actor, centerID, id, req.Note)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, newLeadResponse(lead))
}

// POST /api/centers/{centerID}/leads/{id}/intro-visits
func (h *APIHandler) ScheduleIntroVisit(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.IntroVisitInput
	if !decode(w, r, &in) {
		return
	}
	visit, err := h.svc.ScheduleIntroVisit(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, visit)
}

// GET /api/centers/{centerID}/leads/{id}/intro-visits
func (h *APIHandler) ListIntroVisits(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	visits, err := h.svc.ListIntroVisits(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, visits)
}

// POST /api/centers/{centerID}/intro-visits/{id}/outcome
func (h *APIHandler) RecordIntroOutcome(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.IntroOutcomeInput
	if !decode(w, r, &in) {
		return
	}
	visit, err := h.svc.RecordIntroVisitOutcome(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, visit)
}

// POST /api/centers/{centerID}/leads/{id}/follow-ups
func (h *APIHandler) ScheduleFollowUp(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.FollowUpInput
	if !decode(w, r, &in) {
		return
	}
	fu, err := h.svc.ScheduleFollowUp(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, fu)
}

// GET /api/centers/{centerID}/follow-ups?lead_id=&status=&due_before=&overdue=
func (h *APIHandler) ListFollowUps(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	f := store.FollowUpFilter{ListOptions: opts}
	if f.LeadID, ok = queryUUID(w, r, "lead_id"); !ok {
		return
	}
	if f.DueBefore, ok = queryDate(w, r, "due_before"); !ok {
		return
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := models.ParseFollowUpStatus(v)
		if err != nil {
			writeError(h.cfg, w, r, err)
			return
		}
		f.Status = &status
	}

	fus, err := h.svc.ListFollowUps(r.Context(), actor, centerID, f, queryBool(r, "overdue"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, fus)
}

// POST /api/centers/{centerID}/follow-ups/{id}/complete
func (h *APIHandler) CompleteFollowUp(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.CompleteFollowUpInput
	if !decode(w, r, &in) {
		return
	}
	fu, err := h.svc.CompleteFollowUp(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, fu)
}

// POST /api/centers/{centerID}/follow-ups/{id}/cancel
func (h *APIHandler) CancelFollowUp(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	fu, err := h.svc.CancelFollowUp(r.Context(), actor, centerID, id, req.Reason)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, fu)
}

// POST /api/centers/{centerID}/leads/{id}/convert
func (h *APIHandler) ConvertLead(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.ConvertInput
	if !decode(w, r, &in) {
		return
	}
	conv, err := h.svc.ConvertLead(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"lead":       newLeadResponse(conv.Lead),
		"parent":     conv.Parent,
		"child":      conv.Child,
		"enrollment": conv.Enrollment,
	})
}

// POST /api/centers/{centerID}/leads/{id}/dead
func (h *APIHandler) MarkLeadDead(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decode(w, r, &req) {
		return
	}
	lead, err := h.svc.MarkLeadDead(r.Context(), actor, centerID, id, req.Reason)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, newLeadResponse(lead))
}

// POST /api/centers/{centerID}/leads/{id}/notes
func (h *APIHandler) AddLeadNote(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req noteRequest
	if !decode(w, r, &req) {
		return
	}
	activity, err := h.svc.AddLeadNote(r.Context(), actor, centerID, id, req.Note)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, activity)
}

// PUT /api/centers/{centerID}/leads/{id}/assignee
func (h *APIHandler) AssignLead(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req assignRequest
	if !decode(w, r, &req) {
		return
	}
	lead, err := h.svc.AssignLead(r.Context(), actor, centerID, id, req.UserID)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, newLeadResponse(lead))
}

// GET /api/centers/{centerID}/leads/{id}/activities
func (h *APIHandler) ListLeadActivities(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	activities, err := h.svc.ListLeadActivities(r.Context(), actor, centerID, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, activities)
}
