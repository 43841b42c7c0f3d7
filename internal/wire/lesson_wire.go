package wire

import (
	"lesson-enrollment/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireLesson(r chi.Router, handler *adaptor.LessonHandler) {
	// Public routes, no identity needed for browsing.

	// GET /api/lessons - List open lessons with live availability
	r.Get("/api/lessons", handler.List)

	// GET /api/lessons/{lessonID} - One lesson with live availability
	r.Get("/api/lessons/{lessonID}", handler.Get)

	// GET /api/lockers/availability - Locker usage per gender zone
	r.Get("/api/lockers/availability", handler.LockerAvailability)
}
