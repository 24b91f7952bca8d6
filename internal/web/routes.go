package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/veriface/veriface/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	verifyHandler := handlers.NewVerifyHandler(s.controller)
	enrollHandler := handlers.NewEnrollHandler(s.controller)
	attendanceHandler := handlers.NewAttendanceHandler(s.reader, s.ledger)
	allowHandler := handlers.NewAllowHandler(s.policy)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// JSON endpoints get a request timeout. The preview streams are
		// registered outside this group because they run until the
		// client disconnects.
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(30 * time.Second))

			// Verification session
			r.Post("/verify/start", verifyHandler.Start)
			r.Post("/verify/stop", verifyHandler.Stop)
			r.Get("/verify/status", verifyHandler.Status)
			r.Post("/verify/clear", verifyHandler.Clear)
			r.Post("/verify/reset-lockout", verifyHandler.ResetLockout)

			// Enrollment
			r.Post("/enroll/start", enrollHandler.Start)
			r.Post("/enroll/stop", enrollHandler.Stop)
			r.Get("/enroll/progress", enrollHandler.Progress)

			// Attendance records
			r.Get("/attendance", attendanceHandler.List)
			r.Get("/attendance/last", attendanceHandler.Last)

			// Allow list
			r.Get("/allowed", allowHandler.List)
			r.Post("/allowed", allowHandler.Add)
			r.Delete("/allowed/{name}", allowHandler.Remove)
		})

		// Camera previews
		r.Get("/verify/stream", handlers.MJPEGStream(s.controller.LatestFrame))
		r.Get("/enroll/stream", handlers.MJPEGStream(s.controller.EnrollmentFrame))
	})
}
