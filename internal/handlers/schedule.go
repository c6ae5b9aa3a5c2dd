package handlers

import (
	"net/http"

	"fitkids-crm/internal/service"
	"fitkids-crm/internal/store"
	"fitkids-crm/internal/util"
)

// generateWindowDays is the default span for session generation when no
// ?to= is given.
const generateWindowDays = 28

type activeRequest struct {
	Active bool `json:"active"`
}

// POST /api/centers/{centerID}/batches
func (h *APIHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	var in service.BatchInput
	if !decode(w, r, &in) {
		return
	}
	b, err := h.svc.CreateBatch(r.Context(), actor, centerID, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, b)
}

// GET /api/centers/{centerID}/batches
func (h *APIHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListBatches(r.Context(), actor, centerID, opts)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// GET /api/centers/{centerID}/batches/{id}
func (h *APIHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.svc.GetBatch(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// PUT /api/centers/{centerID}/batches/{id}
func (h *APIHandler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var in service.BatchInput
	if !decode(w, r, &in) {
		return
	}
	b, err := h.svc.UpdateBatch(r.Context(), actor, centerID, id, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// PUT /api/centers/{centerID}/batches/{id}/active
func (h *APIHandler) SetBatchActive(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req activeRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.svc.SetBatchActive(r.Context(), actor, centerID, id, req.Active)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// POST /api/centers/{centerID}/sessions
func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	var in service.SessionInput
	if !decode(w, r, &in) {
		return
	}
	s, err := h.svc.CreateClassSession(r.Context(), actor, centerID, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, s)
}

// POST /api/centers/{centerID}/batches/{id}/sessions/generate?from=&to=
func (h *APIHandler) GenerateSessions(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	from, to, err := util.ParseDateRange(q.Get("from"), q.Get("to"), generateWindowDays)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	sessions, err := h.svc.GenerateSessions(r.Context(), actor, centerID, id, from, to)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	h.cfg.Debugf("generated %d sessions for batch %s (%s..%s)", len(sessions), id, from.Format("2006-01-02"), to.Format("2006-01-02"))
	jsonResponse(w, http.StatusCreated, sessions)
}

// GET /api/centers/{centerID}/sessions?batch_id=&from=&to=
func (h *APIHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	f := store.SessionFilter{ListOptions: opts}
	if f.BatchID, ok = queryUUID(w, r, "batch_id"); !ok {
		return
	}
	if f.From, ok = queryDate(w, r, "from"); !ok {
		return
	}
	if f.To, ok = queryDate(w, r, "to"); !ok {
		return
	}
	list, err := h.svc.ListSessions(r.Context(), actor, centerID, f)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// GET /api/centers/{centerID}/sessions/{id}
func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.svc.GetSession(r.Context(), actor, centerID, id, queryBool(r, "include_archived"))
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// POST /api/centers/{centerID}/sessions/{id}/cancel
func (h *APIHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
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
	s, err := h.svc.CancelSession(r.Context(), actor, centerID, id, req.Reason)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// POST /api/centers/{centerID}/sessions/{id}/complete
func (h *APIHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.svc.CompleteSession(r.Context(), actor, centerID, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// POST /api/centers/{centerID}/attendance
func (h *APIHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	var in service.AttendanceInput
	if !decode(w, r, &in) {
		return
	}
	a, err := h.svc.MarkAttendance(r.Context(), actor, centerID, in)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

// GET /api/centers/{centerID}/attendance?session_id=&child_id=&enrollment_id=
func (h *APIHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	f := store.AttendanceFilter{ListOptions: opts}
	if f.SessionID, ok = queryUUID(w, r, "session_id"); !ok {
		return
	}
	if f.ChildID, ok = queryUUID(w, r, "child_id"); !ok {
		return
	}
	if f.EnrollmentID, ok = queryUUID(w, r, "enrollment_id"); !ok {
		return
	}
	list, err := h.svc.ListAttendance(r.Context(), actor, centerID, f)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// GET /api/centers/{centerID}/attendance/{id}
func (h *APIHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	actor, centerID, ok := actorAndCenter(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.svc.GetAttendance(r.Context(), actor, centerID, id)
	if err != nil {
		writeError(h.cfg, w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, a)
}
