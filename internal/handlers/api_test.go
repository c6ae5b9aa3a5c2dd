package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitkids-crm/internal/config"
	"fitkids-crm/internal/middleware"
	"fitkids-crm/internal/models"
	"fitkids-crm/internal/service"
	"fitkids-crm/internal/store/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse"

type apiFixture struct {
	t      *testing.T
	mux    *http.ServeMux
	svc    *service.Service
	root   models.Actor
	center *models.Center
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	cfg := &config.Config{SessionSecret: "test-secret"}
	svc := service.New(memstore.New(), service.WithLogger(log.New(io.Discard, "", 0)))
	f := &apiFixture{
		t:    t,
		mux:  NewRouter(cfg, svc),
		svc:  svc,
		root: models.Actor{UserID: uuid.New(), Role: models.RoleSuperAdmin},
	}
	var err error
	f.center, err = svc.CreateCenter(ctx, f.root, service.CenterInput{Name: "Downtown", Code: "dt01"})
	require.NoError(t, err)
	return f
}

// staff creates a user at the fixture center and logs them in.
func (f *apiFixture) staff(email string, role models.Role) *http.Cookie {
	f.t.Helper()
	_, err := f.svc.CreateUser(context.Background(), f.root, service.UserInput{
		CenterID: &f.center.ID, Email: email, Password: testPassword, FullName: "Staff", Role: role,
	})
	require.NoError(f.t, err)

	rec := f.do(http.MethodPost, "/api/login", map[string]string{"email": email, "password": testPassword}, nil)
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	f.t.Fatal("login did not set a session cookie")
	return nil
}

func (f *apiFixture) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) centerPath(format string, args ...any) string {
	return fmt.Sprintf("/api/centers/%s", f.center.ID) + fmt.Sprintf(format, args...)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLoginMeLogout(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.staff("ada@example.com", models.RoleCenterAdmin)

	rec := f.do(http.MethodPost, "/api/login", map[string]string{"email": "ada@example.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.Equal(t, "ada@example.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	rec = f.do(http.MethodPost, "/api/logout", nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestLeadEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.staff("counselor@example.com", models.RoleCenterAdmin)

	rec := f.do(http.MethodPost, f.centerPath("/leads"), map[string]any{
		"child_name": "Mia", "parent_name": "Sara", "phone": "555-0101", "source": models.SourceWalkIn,
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lead := decodeBody(t, rec)
	assert.Equal(t, string(models.LeadNew), lead["status"])
	assert.Equal(t, "New Enquiry", lead["display"].(map[string]any)["display_name"])
	leadID := lead["id"].(string)

	rec = f.do(http.MethodGet, f.centerPath("/leads?status=new"), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0]["next_action"])

	rec = f.do(http.MethodGet, f.centerPath("/leads?status=bogus"), nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, f.centerPath("/leads/%s/contact", leadID), map[string]string{"note": "called back"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(models.LeadContacted), decodeBody(t, rec)["status"])

	rec = f.do(http.MethodGet, f.centerPath("/leads/%s", leadID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody(t, rec)
	assert.NotEmpty(t, detail["activities"])

	rec = f.do(http.MethodPost, f.centerPath("/leads/%s/dead", leadID), map[string]string{"reason": " "}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	batch, err := f.svc.CreateBatch(context.Background(), f.root, f.center.ID, service.BatchInput{
		Name: "Tigers", MinAgeMonths: 36, MaxAgeMonths: 120, DaysOfWeek: []models.Weekday{models.Monday},
		StartTime: "10:00", EndTime: "11:00", Capacity: 10,
	})
	require.NoError(t, err)
	rec = f.do(http.MethodPost, f.centerPath("/leads/%s/convert", leadID), map[string]any{
		"enrollment": map[string]any{
			"batch_id": batch.ID, "plan_type": models.PlanMonthly, "start_date": "2025-01-06T00:00:00Z", "fee_amount": 5000,
		},
	}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, string(models.KindInvalidState), decodeBody(t, rec)["error"])
}

func TestRequestErrors(t *testing.T) {
	f := newAPIFixture(t)
	cookie := f.staff("admin@example.com", models.RoleCenterAdmin)
	other, err := f.svc.CreateCenter(context.Background(), f.root, service.CenterInput{Name: "Uptown", Code: "up01"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad uuid", http.MethodGet, f.centerPath("/leads/not-a-uuid"), nil, http.StatusBadRequest},
		{"missing lead", http.MethodGet, f.centerPath("/leads/%s", uuid.New()), nil, http.StatusNotFound},
		{"other center", http.MethodGet, fmt.Sprintf("/api/centers/%s/leads", other.ID), nil, http.StatusForbidden},
		{"unknown field", http.MethodPost, f.centerPath("/children"), `{"full_name":"Mia","shoe_size":3}`, http.StatusBadRequest},
		{"empty body", http.MethodPost, f.centerPath("/children"), nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, f.centerPath("/children?limit=-1"), nil, http.StatusBadRequest},
		{"reversed range", http.MethodPost, f.centerPath("/batches/%s/sessions/generate?from=2025-02-01&to=2025-01-01", uuid.New()), nil, http.StatusBadRequest},
		{"bad archive kind", http.MethodPost, f.centerPath("/archive/payments/%s", uuid.New()), nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nowhere", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.body, cookie)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestArchiveRequiresAdminRole(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.staff("admin@example.com", models.RoleCenterAdmin)
	trainer := f.staff("trainer@example.com", models.RoleTrainer)

	rec := f.do(http.MethodPost, f.centerPath("/children"), map[string]any{
		"full_name": "Noah", "date_of_birth": "2019-05-01T00:00:00Z",
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	childID := decodeBody(t, rec)["id"].(string)

	rec = f.do(http.MethodPost, f.centerPath("/archive/children/%s", childID), nil, trainer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, f.centerPath("/archive/children/%s", childID), nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, childID, decodeBody(t, rec)["id"])

	rec = f.do(http.MethodGet, f.centerPath("/children/%s", childID), nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(http.MethodGet, f.centerPath("/children/%s?include_archived=true", childID), nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, f.centerPath("/unarchive/children/%s", childID), nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodGet, f.centerPath("/children/%s", childID), nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteErrorStatus(t *testing.T) {
	cfg := &config.Config{}
	tests := []struct {
		err  error
		want int
	}{
		{models.Validationf("bad"), http.StatusBadRequest},
		{models.NotFoundf("gone"), http.StatusNotFound},
		{models.Conflictf("dup"), http.StatusConflict},
		{models.InvalidStatef("nope"), http.StatusConflict},
		{models.Forbiddenf("no"), http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", models.Conflictf("dup")), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(cfg, rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
