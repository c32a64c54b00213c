package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *API) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	mux.HandleFunc("GET /health", a.HealthHandler)

	// Scoring
	mux.HandleFunc("POST /api/score", a.ScoreHandler)
	mux.HandleFunc("POST /api/submissions", a.CreateSubmissionHandler)
	mux.HandleFunc("GET /api/submissions/{id}", a.GetSubmissionHandler)
	mux.HandleFunc("DELETE /api/submissions/{id}", a.CancelSubmissionHandler)

	// Candidates
	mux.HandleFunc("GET /api/candidates", a.ListCandidatesHandler)
	mux.HandleFunc("GET /api/candidates/count", a.CountCandidatesHandler)
	mux.HandleFunc("GET /api/candidates/{id}", a.GetCandidateHandler)
	mux.HandleFunc("PATCH /api/candidates/{id}/status", a.UpdateCandidateStatusHandler)
	mux.HandleFunc("POST /api/candidates/{id}/tags", a.AddTagHandler)
	mux.HandleFunc("DELETE /api/candidates/{id}/tags/{tag}", a.RemoveTagHandler)

	// Shortlist
	mux.HandleFunc("GET /api/shortlist", a.ShortlistHandler)
	mux.HandleFunc("PUT /api/shortlist/order", a.ReorderShortlistHandler)
	mux.HandleFunc("POST /api/shortlist/{id}/move", a.MoveShortlistHandler)
	mux.HandleFunc("GET /api/shortlist/export", a.ExportShortlistHandler)

	// Roles
	mux.HandleFunc("GET /api/roles", a.ListRolesHandler)
	mux.HandleFunc("POST /api/roles", a.CreateRoleHandler)
	mux.HandleFunc("GET /api/roles/{id}", a.GetRoleHandler)

	// Interview scheduling
	mux.HandleFunc("GET /api/schedule", a.ScheduleHandler)
	mux.HandleFunc("POST /api/schedule", a.CreateSlotHandler)
	mux.HandleFunc("POST /api/schedule/{id}/confirm", a.ConfirmSlotHandler)
	mux.HandleFunc("DELETE /api/schedule/{id}", a.DeleteSlotHandler)
	mux.HandleFunc("GET /api/schedule/{id}/invite", a.InvitePreviewHandler)

	// Analytics
	mux.HandleFunc("GET /api/analytics", a.AnalyticsHandler)
	mux.HandleFunc("GET /api/dashboard", a.DashboardHandler)

	// Notifications
	mux.HandleFunc("POST /api/reject", a.RejectHandler)
	mux.HandleFunc("POST /api/invite", a.InviteHandler)
	mux.HandleFunc("POST /api/send-email", a.SendEmailHandler)

	// Auth
	mux.HandleFunc("POST /api/auth/signup", a.SignupHandler)
	mux.HandleFunc("POST /api/auth/login", a.LoginHandler)
	mux.HandleFunc("POST /api/auth/logout", a.LogoutHandler)
	mux.HandleFunc("GET /api/me", a.requireUser(a.MeHandler))
	mux.HandleFunc("PUT /api/settings", a.requireUser(a.SettingsHandler))

	var h http.Handler = mux
	h = a.withSession(h)
	h = a.withRecover(h)
	h = a.withAccessLog(h)
	h = withRequestID(h)
	return h
}
