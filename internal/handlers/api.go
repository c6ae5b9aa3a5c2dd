package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"fitkids-crm/internal/config"
	"fitkids-crm/internal/middleware"
	"fitkids-crm/internal/models"
	"fitkids-crm/internal/service"
	"fitkids-crm/internal/store"
	"fitkids-crm/internal/util"

	"github.com/google/uuid"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type APIHandler struct {
	cfg *config.Config
	svc *service.Service
}

func NewAPIHandler(cfg *config.Config, svc *service.Service) *APIHandler {
	return &APIHandler{cfg: cfg, svc: svc}
}

// JSON response helpers
func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(status)
	if status == http.StatusNoContent {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: Failed to encode JSON response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, status int, kind, message string) {
	jsonResponse(w, status, map[string]string{"error": kind, "message": message})
}

var kindStatus = map[models.ErrorKind]int{
	models.KindValidation:   http.StatusBadRequest,
	models.KindNotFound:     http.StatusNotFound,
	models.KindConflict:     http.StatusConflict,
	models.KindInvalidState: http.StatusConflict,
	models.KindForbidden:    http.StatusForbidden,
}

// writeError maps a service error to its HTTP status. Anything without a
// kind is logged and reported as an internal error.
func writeError(cfg *config.Config, w http.ResponseWriter, r *http.Request, err error) {
	var e *models.Error
	if errors.As(err, &e) {
		if status, ok := kindStatus[e.Kind]; ok {
			cfg.Debugf("%s %s → %s: %v", r.Method, r.URL.Path, e.Kind, err)
			jsonError(w, status, string(e.Kind), e.Message)
			return
		}
	}
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, string(models.KindNotFound), "record not found")
		return
	}
	log.Printf("ERROR: %s %s: %v", r.Method, r.URL.Path, err)
	jsonError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func badRequest(w http.ResponseWriter, format string, args ...any) {
	jsonError(w, http.StatusBadRequest, string(models.KindValidation), fmt.Sprintf(format, args...))
}

// decode reads a JSON body into dst, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			badRequest(w, "request body is required")
		} else {
			badRequest(w, "invalid JSON: %v", err)
		}
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON: %v", err)
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		badRequest(w, "invalid %s", name)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID returns nil when the parameter is absent.
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		badRequest(w, "invalid %s", name)
		return nil, false
	}
	return &id, true
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// listOptions reads ?offset=, ?limit= and ?include_archived=.
func listOptions(w http.ResponseWriter, r *http.Request) (store.ListOptions, bool) {
	q := r.URL.Query()
	opts := store.ListOptions{IncludeArchived: queryBool(r, "include_archived")}
	for name, dst := range map[string]*int{"offset": &opts.Offset, "limit": &opts.Limit} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				badRequest(w, "invalid %s", name)
				return opts, false
			}
			*dst = n
		}
	}
	return opts.Normalize(), true
}

func queryDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	t, err := util.ParseOptionalDate(r.URL.Query().Get(name))
	if err != nil {
		badRequest(w, "%s: %v", name, err)
		return nil, false
	}
	return t, true
}

// actorAndCenter resolves the caller and the {centerID} path segment.
func actorAndCenter(w http.ResponseWriter, r *http.Request) (models.Actor, uuid.UUID, bool) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
		return actor, uuid.Nil, false
	}
	centerID, ok := pathUUID(w, r, "centerID")
	return actor, centerID, ok
}

// GET /api/health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
