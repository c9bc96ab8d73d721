package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/umbral-esperanza/choir-console-api/internal/app/session"
	"github.com/umbral-esperanza/choir-console-api/internal/app/state"
)

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: middleware resolves the identity,
// handlers scope-check and delegate to the application layer.
func NewRouter(s *Server, gate *session.Gate, st *state.Store) http.Handler {
	r := chi.NewRouter()

	// Baseline production-safe middleware. Identity resolution exempts
	// /healthz and /login itself.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(NewIdentityMiddleware(gate, st))

	// Health endpoint is used for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Get("/members", s.handleListMembers)
	r.Post("/members", s.handleCreateMember)
	r.Delete("/members/{id}", s.handleDeleteMember)

	r.Get("/choirs", s.handleListChoirs)
	r.Put("/choirs/{id}/photo", s.handleUpdateChoirPhoto)

	r.Get("/events", s.handleListEvents)
	r.Post("/events", s.handleCreateEvent)
	r.Put("/events/{id}", s.handleUpdateEvent)
	r.Delete("/events/{id}", s.handleDeleteEvent)

	r.Post("/reports", s.handleSubmitRoster)
	r.Get("/reports/ledger", s.handleLedger)

	r.Get("/stats/dashboard", s.handleDashboard)
	r.Get("/stats/choirs/{id}", s.handleChoirStats)
	r.Get("/stats/events/{id}", s.handleEventStats)
	r.Get("/stats/members/{id}", s.handleMemberStats)
	r.Get("/stats/weekends", s.handleWeekendStats)

	r.Get("/export", s.handleExport)
	r.Post("/import", s.handleImport)

	r.Get("/users", s.handleListUsers)
	r.Post("/users", s.handleCreateUser)
	r.Put("/users/{id}", s.handleUpdateUser)
	r.Delete("/users/{id}", s.handleDeleteUser)

	return r
}
