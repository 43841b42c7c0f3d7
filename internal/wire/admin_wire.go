package wire

import (
	"lesson-enrollment/internal/adaptor"
	"lesson-enrollment/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireAdmin(r chi.Router, handler *adaptor.AdminHandler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Identity)
		r.Use(middleware.AdminOnly)

		// POST /api/admin/enrollments/{enrollmentID}/cancel - Unilateral admin cancel
		r.Post("/enrollments/{enrollmentID}/cancel", handler.CancelEnrollment)

		// POST /api/admin/enrollments/{enrollmentID}/approve-cancel - Approve and refund
		r.Post("/enrollments/{enrollmentID}/approve-cancel", handler.ApproveCancel)

		// POST /api/admin/enrollments/{enrollmentID}/deny-cancel - Deny and restore
		r.Post("/enrollments/{enrollmentID}/deny-cancel", handler.DenyCancel)

		// PUT /api/admin/lockers/{gender} - Resize a locker zone
		r.Put("/lockers/{gender}", handler.UpdateLockerCapacity)
	})
}
