package handlers

import (
	"net/http"

	"fitkids-crm/internal/config"
	"fitkids-crm/internal/middleware"
	"fitkids-crm/internal/models"
	"fitkids-crm/internal/service"
)

type access int

const (
	public access = iota
	authenticated
	admin
)

type route struct {
	pattern string
	access  access
	handler http.HandlerFunc
}

func (h *APIHandler) routes(auth *AuthHandler) []route {
	const c = "/api/centers/{centerID}"
	return []route{
		{"GET /api/health", public, h.Health},
		{"POST /api/login", public, auth.Login},
		{"POST /api/logout", public, auth.Logout},
		{"GET /api/me", authenticated, auth.Me},

		{"POST /api/centers", authenticated, h.CreateCenter},
		{"GET /api/centers", authenticated, h.ListCenters},
		{"GET " + c, authenticated, h.GetCenter},
		{"POST /api/users", admin, h.CreateUser},
		{"GET /api/users/{id}", authenticated, h.GetUser},

		{"POST " + c + "/leads", authenticated, h.CreateLead},
		{"GET " + c + "/leads", authenticated, h.ListLeads},
		{"GET " + c + "/leads/{id}", authenticated, h.GetLead},
		{"POST " + c + "/leads/{id}/contact", authenticated, h.MarkContacted},
		{"POST " + c + "/leads/{id}/intro-visits", authenticated, h.ScheduleIntroVisit},
		{"GET " + c + "/leads/{id}/intro-visits", authenticated, h.ListIntroVisits},
		{"POST " + c + "/intro-visits/{id}/outcome", authenticated, h.RecordIntroOutcome},
		{"POST " + c + "/leads/{id}/follow-ups", authenticated, h.ScheduleFollowUp},
		{"GET " + c + "/follow-ups", authenticated, h.ListFollowUps},
		{"POST " + c + "/follow-ups/{id}/complete", authenticated, h.CompleteFollowUp},
		{"POST " + c + "/follow-ups/{id}/cancel", authenticated, h.CancelFollowUp},
		{"POST " + c + "/leads/{id}/convert", authenticated, h.ConvertLead},
		{"POST " + c + "/leads/{id}/dead", authenticated, h.MarkLeadDead},
		{"POST " + c + "/leads/{id}/notes", authenticated, h.AddLeadNote},
		{"PUT " + c + "/leads/{id}/assignee", authenticated, h.AssignLead},
		{"GET " + c + "/leads/{id}/activities", authenticated, h.ListLeadActivities},

		{"POST " + c + "/parents", authenticated, h.CreateParent},
		{"GET " + c + "/parents/{id}", authenticated, h.GetParent},
		{"POST " + c + "/children", authenticated, h.CreateChild},
		{"GET " + c + "/children", authenticated, h.ListChildren},
		{"GET " + c + "/children/{id}", authenticated, h.GetChild},
		{"POST " + c + "/family-links", authenticated, h.LinkParent},
		{"GET " + c + "/children/{id}/family-links", authenticated, h.ListFamilyLinks},
		{"PUT " + c + "/children/{id}/primary-contact/{linkID}", authenticated, h.SetPrimaryContact},
		{"GET " + c + "/primary-contacts/violations", admin, h.VerifyPrimaryContacts},

		{"POST " + c + "/enrollments", authenticated, h.CreateEnrollment},
		{"GET " + c + "/enrollments", authenticated, h.ListEnrollments},
		{"GET " + c + "/enrollments/{id}", authenticated, h.GetEnrollment},
		{"PUT " + c + "/enrollments/{id}/status", authenticated, h.ChangeEnrollmentStatus},
		{"POST " + c + "/enrollments/{id}/discounts", authenticated, h.AddDiscount},
		{"GET " + c + "/enrollments/{id}/discounts", authenticated, h.ListDiscounts},
		{"POST " + c + "/enrollments/{id}/payments", authenticated, h.RecordPayment},
		{"GET " + c + "/enrollments/{id}/payments", authenticated, h.ListPayments},
		{"GET " + c + "/payments/{id}", authenticated, h.GetPayment},

		{"POST " + c + "/batches", authenticated, h.CreateBatch},
		{"GET " + c + "/batches", authenticated, h.ListBatches},
		{"GET " + c + "/batches/{id}", authenticated, h.GetBatch},
		{"PUT " + c + "/batches/{id}", authenticated, h.UpdateBatch},
		{"PUT " + c + "/batches/{id}/active", authenticated, h.SetBatchActive},
		{"PUT " + c + "/batches/{id}/mapping", authenticated, h.MapBatch},
		{"GET " + c + "/batches/{id}/skills", authenticated, h.BatchSkills},
		{"POST " + c + "/batches/{id}/sessions/generate", authenticated, h.GenerateSessions},
		{"POST " + c + "/sessions", authenticated, h.CreateSession},
		{"GET " + c + "/sessions", authenticated, h.ListSessions},
		{"GET " + c + "/sessions/{id}", authenticated, h.GetSession},
		{"POST " + c + "/sessions/{id}/cancel", authenticated, h.CancelSession},
		{"POST " + c + "/sessions/{id}/complete", authenticated, h.CompleteSession},
		{"POST " + c + "/attendance", authenticated, h.MarkAttendance},
		{"GET " + c + "/attendance", authenticated, h.ListAttendance},
		{"GET " + c + "/attendance/{id}", authenticated, h.GetAttendance},

		{"POST /api/class-types", authenticated, h.CreateClassType},
		{"POST /api/curricula", authenticated, h.CreateCurriculum},
		{"GET /api/curricula/{id}", authenticated, h.GetCurriculumTree},
		{"POST /api/curricula/{id}/skills", authenticated, h.AddSkill},
		{"POST /api/curricula/{id}/categories", authenticated, h.AddActivityCategory},
		{"POST /api/categories/{id}/levels", authenticated, h.AddProgressionLevel},
		{"GET " + c + "/curricula", authenticated, h.ListCurricula},

		{"PUT " + c + "/children/{id}/skills", authenticated, h.UpdateSkillProgress},
		{"GET " + c + "/children/{id}/skills", authenticated, h.ListSkillProgress},
		{"POST " + c + "/children/{id}/levels", authenticated, h.RecordLevelAttainment},
		{"GET " + c + "/children/{id}/progress", authenticated, h.GetChildProgress},
		{"POST " + c + "/children/{id}/report-cards", authenticated, h.GenerateReportCard},
		{"GET " + c + "/children/{id}/report-cards", authenticated, h.ListReportCards},
		{"GET " + c + "/report-cards/{id}", authenticated, h.GetReportCard},

		{"POST " + c + "/archive/{kind}/{id}", admin, h.Archive},
		{"POST " + c + "/unarchive/{kind}/{id}", admin, h.Unarchive},
	}
}

// NewRouter registers every API route on a fresh mux. Service calls do their
// own role and tenant checks; the access level here only gates the session.
func NewRouter(cfg *config.Config, svc *service.Service) *http.ServeMux {
	api := NewAPIHandler(cfg, svc)
	auth := NewAuthHandler(cfg, svc)
	mux := http.NewServeMux()

	// Request logging middleware - concise request log
	requestLogMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cfg.Debugf("REQUEST: %s %s", r.Method, r.URL.Path)
			next(w, r)
		}
	}

	for _, rt := range api.routes(auth) {
		h := rt.handler
		switch rt.access {
		case authenticated:
			h = middleware.RequireAuth(h, cfg.SessionSecret)
		case admin:
			h = middleware.RequireRole(adminRoles, cfg.SessionSecret)(h)
		}
		mux.HandleFunc(rt.pattern, requestLogMiddleware(h))
		cfg.Debugf("ROUTE REGISTERED: %s", rt.pattern)
	}

	mux.HandleFunc("/", requestLogMiddleware(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, string(models.KindNotFound), "no route for "+r.Method+" "+r.URL.Path)
	}))
	return mux
}
