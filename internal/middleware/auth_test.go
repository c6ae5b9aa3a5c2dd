package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fitkids-crm/internal/models"

	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestSessionCookieRoundTrip(t *testing.T) {
	center := uuid.New()
	tests := []struct {
		name  string
		actor models.Actor
	}{
		{"center staff", models.Actor{UserID: uuid.New(), Role: models.RoleCounselor, CenterID: &center}},
		{"super admin", models.Actor{UserID: uuid.New(), Role: models.RoleSuperAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cookie := CreateSessionCookie(tt.actor, testSecret, false)
			got, err := ValidateSessionCookie(cookie, testSecret, time.Now())
			if err != nil {
				t.Fatalf("ValidateSessionCookie() error = %v", err)
			}
			if got.UserID != tt.actor.UserID || got.Role != tt.actor.Role {
				t.Errorf("actor = %+v, want %+v", got, tt.actor)
			}
			if (got.CenterID == nil) != (tt.actor.CenterID == nil) {
				t.Fatalf("CenterID = %v, want %v", got.CenterID, tt.actor.CenterID)
			}
			if got.CenterID != nil && *got.CenterID != *tt.actor.CenterID {
				t.Errorf("CenterID = %s, want %s", *got.CenterID, *tt.actor.CenterID)
			}
		})
	}
}

func TestValidateSessionCookieRejects(t *testing.T) {
	actor := models.Actor{UserID: uuid.New(), Role: models.RoleTrainer}
	good := CreateSessionCookie(actor, testSecret, false)

	tampered := *good
	tampered.Value = strings.Replace(good.Value, string(models.RoleTrainer), string(models.RoleSuperAdmin), 1)

	tests := []struct {
		name   string
		cookie *http.Cookie
		secret string
		now    time.Time
	}{
		{"missing", nil, testSecret, time.Now()},
		{"wrong secret", good, "other", time.Now()},
		{"tampered role", &tampered, testSecret, time.Now()},
		{"malformed", &http.Cookie{Name: SessionCookieName, Value: "a|b"}, testSecret, time.Now()},
		{"expired", good, testSecret, time.Now().Add(8 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateSessionCookie(tt.cookie, tt.secret, tt.now); err == nil {
				t.Error("ValidateSessionCookie() succeeded, want error")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	center := uuid.New()
	handler := RequireRole([]models.Role{models.RoleCenterAdmin}, testSecret)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name  string
		actor *models.Actor
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &models.Actor{UserID: uuid.New(), Role: models.RoleTrainer, CenterID: &center}, http.StatusForbidden},
		{"allowed", &models.Actor{UserID: uuid.New(), Role: models.RoleCenterAdmin, CenterID: &center}, http.StatusNoContent},
		{"super admin", &models.Actor{UserID: uuid.New(), Role: models.RoleSuperAdmin}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.actor != nil {
				req.AddCookie(CreateSessionCookie(*tt.actor, testSecret, false))
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
