package handlers

import (
	"net/http"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/service"
	"fitkids-crm/internal/store"
)

type statusRequest struct {
	Status models.EnrollmentStatus `json:"status"`
}

// POST /api/centers/{centerID}/enrollments
func (h *APIHandler) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	var in service.EnrollmentInput
	if !decode(w, r, &in) {
		return
	}
	e, err := h.svc.CreateEnrollment(r.Context(), actor, centerID, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, e)
}

// GET /api/centers/{centerID}/enrollments?child_id=&batch_id=&status=
func (h *APIHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	f := store.EnrollmentFilter{ListOptions: opts}
	if f.ChildID, ok = queryUUID(w, r, "child_id"); !ok {
		return
	}
	if f.BatchID, ok = queryUUID(w, r, "batch_id"); !ok {
		return
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := models.ParseEnrollmentStatus(v)
		if err != nil {
			writeError(h.cfg, w, r, err)
			return
		}
		f.Status = &status
	}
	list, err := h.svc.ListEnrollments(r.Context(), actor, centerID, f)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// GET /api/centers/{centerID}/enrollments/{id}
func (h *APIHandler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.svc.GetEnrollment(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, e)
}

// PUT /api/centers/{centerID}/enrollments/{id}/status
func (h *APIHandler) ChangeEnrollmentStatus(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.ChangeEnrollmentStatus(r.Context(), actor, centerID, id, req.Status)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, e)
}

// POST /api/centers/{centerID}/enrollments/{id}/discounts
func (h *APIHandler) AddDiscount(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.DiscountInput
	if !decode(w, r, &in) {
		return
	}
	d, err := h.svc.AddDiscount(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, d)
}

// GET /api/centers/{centerID}/enrollments/{id}/discounts
func (h *APIHandler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListDiscounts(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// POST /api/centers/{centerID}/enrollments/{id}/payments
func (h *APIHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.PaymentInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.svc.RecordPayment(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, p)
}

// GET /api/centers/{centerID}/enrollments/{id}/payments
func (h *APIHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.svc.ListPayments(r.Context(), actor, centerID, id, opts)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// GET /api/centers/{centerID}/payments/{id}
func (h *APIHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetPayment(r.Context(), actor, centerID, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}
