package wire

import (
	"lesson-enrollment/internal/adaptor"
	"lesson-enrollment/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireEnrollment(r chi.Router, handler *adaptor.EnrollmentHandler) {
	// All enrollment routes carry the proxied user identity.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)

		// POST /api/enrollments - Apply for a lesson (creates a payment hold)
		r.Post("/api/enrollments", handler.Create)

		// POST /api/enrollments/renewal - Renew the current month's lesson
		r.Post("/api/enrollments/renewal", handler.CreateRenewal)

		// GET /api/enrollments - Own enrollment history
		r.Get("/api/enrollments", handler.GetMine)

		// POST /api/enrollments/{enrollmentID}/cancel - Request cancellation
		r.Post("/api/enrollments/{enrollmentID}/cancel", handler.Cancel)

		// GET /api/enrollments/{enrollmentID}/refund-preview - Read-only refund breakdown
		r.Get("/api/enrollments/{enrollmentID}/refund-preview", handler.RefundPreview)

		// GET /api/lessons/{lessonID}/eligibility - Pre-check before the gateway UI
		r.Get("/api/lessons/{lessonID}/eligibility", handler.CheckEligibility)
	})
}
