package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fitkids-crm/internal/models"

	"github.com/google/uuid"
)

type contextKey string

const actorKey contextKey = "actor"

const (
	SessionCookieName = "fitkids_session"
	sessionMaxAge     = 7 * 24 * time.Hour
)

// Cookie value: userID|role|centerID|issuedAt|signature. centerID is empty
// for super admins.
func sign(value, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

func CreateSessionCookie(actor models.Actor, secret string, secure bool) *http.Cookie {
	center := ""
	if actor.CenterID != nil {
		center = actor.CenterID.String()
	}
	value := fmt.Sprintf("%s|%s|%s|%d", actor.UserID, actor.Role, center, time.Now().Unix())

	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value + "|" + sign(value, secret),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	}
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}

func ValidateSessionCookie(cookie *http.Cookie, secret string, now time.Time) (models.Actor, error) {
	if cookie == nil {
		return models.Actor{}, fmt.Errorf("no session cookie")
	}

	parts := strings.Split(cookie.Value, "|")
	if len(parts) != 5 {
		return models.Actor{}, fmt.Errorf("invalid session format")
	}

	value := strings.Join(parts[:4], "|")
	if !hmac.Equal([]byte(parts[4]), []byte(sign(value, secret))) {
		return models.Actor{}, fmt.Errorf("invalid session signature")
	}

	issued, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return models.Actor{}, fmt.Errorf("invalid session timestamp")
	}
	if now.Sub(time.Unix(issued, 0)) > sessionMaxAge {
		return models.Actor{}, fmt.Errorf("session expired")
	}

	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return models.Actor{}, fmt.Errorf("invalid session user")
	}
	role, err := models.ParseRole(parts[1])
	if err != nil {
		return models.Actor{}, fmt.Errorf("invalid session role")
	}
	actor := models.Actor{UserID: userID, Role: role}
	if parts[2] != "" {
		centerID, err := uuid.Parse(parts[2])
		if err != nil {
			return models.Actor{}, fmt.Errorf("invalid session center")
		}
		actor.CenterID = &centerID
	}
	return actor, nil
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "UNAUTHORIZED", "message": "login required"})
}

func RequireAuth(next http.HandlerFunc, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			unauthorized(w)
			return
		}

		actor, err := ValidateSessionCookie(cookie, secret, time.Now())
		if err != nil {
			unauthorized(w)
			return
		}

		next(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}

// WithActor stores the authenticated actor on ctx.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor returns the actor set by RequireAuth.
func GetActor(r *http.Request) (models.Actor, bool) {
	actor, ok := r.Context().Value(actorKey).(models.Actor)
	return actor, ok
}

// RequireRole ensures the user has one of the specified roles. Super admins
// always pass.
func RequireRole(allowedRoles []models.Role, secret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := GetActor(r)
			if !actor.HasRole(allowedRoles...) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "FORBIDDEN", "message": "insufficient permissions"})
				return
			}
			next(w, r)
		}, secret)
	}
}
