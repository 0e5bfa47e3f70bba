package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

// requestTimeout bounds extraction plus the database transaction of a kiosk request.
const requestTimeout = 2 * time.Minute

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Attendance)
	reportsHandler := handlers.NewReportsHandler(s.deps.Store, s.deps.Reporter)
	auditHandler := handlers.NewAuditHandler(s.deps.Auditor, s.deps.Attendance)

	// Kiosk endpoints keep the paths existing clients post to.
	s.router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(requestTimeout))
		r.Post("/register", attendanceHandler.Register)
		r.Post("/attendance", attendanceHandler.Mark)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		// The websocket is long-lived and must not get a request deadline.
		if s.deps.Hub != nil {
			r.Get("/events", s.deps.Hub.ServeWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Get("/health", handlers.HealthCheck(s.deps.Store))

			r.Get("/identities", reportsHandler.ListIdentities)
			r.Get("/attendance", reportsHandler.ListAttendance)
			r.Get("/attendance/summary", reportsHandler.Summary)

			r.Get("/audit/ambiguous", auditHandler.Ambiguous)
			r.Post("/audit/candidates", auditHandler.Candidates)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}` + "\n"))
	})
}
