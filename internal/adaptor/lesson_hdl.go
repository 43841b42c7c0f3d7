package adaptor

import (
	"net/http"
	"time"

	"lesson-enrollment/internal/dto/request"
	"lesson-enrollment/internal/usecase"
	"lesson-enrollment/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type LessonHandler struct {
	service usecase.LessonService
	log     *zap.Logger
}

func NewLessonHandler(service usecase.LessonService, log *zap.Logger) *LessonHandler {
	return &LessonHandler{
		service: service,
		log:     log.With(zap.String("handler", "lesson")),
	}
}

// List handles GET /api/lessons. An optional month=YYYY-MM query
// narrows the listing to lessons starting that month.
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseIntDefault(query.Get("page"), 1),
		PerPage: utils.ParseIntDefault(query.Get("per_page"), 20),
	}

	var monthStart, monthEnd *time.Time
	if raw := query.Get("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			utils.ResponseBadRequest(w, "Invalid month, expected YYYY-MM", nil)
			return
		}
		start := parsed
		end := parsed.AddDate(0, 1, 0).Add(-time.Second)
		monthStart, monthEnd = &start, &end
	}

	lessons, err := h.service.ListLessons(r.Context(), monthStart, monthEnd, req)
	if err != nil {
		handleServiceError(w, h.log, err, "list lessons")
		return
	}

	utils.ResponseSuccess(w, "success", lessons)
}

// Get handles GET /api/lessons/{lessonID}
func (h *LessonHandler) Get(w http.ResponseWriter, r *http.Request) {
	lessonID, err := utils.ParseInt64(chi.URLParam(r, "lessonID"))
	if err != nil || lessonID <= 0 {
		utils.ResponseBadRequest(w, "Invalid lesson ID", nil)
		return
	}

	lesson, err := h.service.GetLesson(r.Context(), lessonID)
	if err != nil {
		handleServiceError(w, h.log, err, "get lesson")
		return
	}

	utils.ResponseSuccess(w, "success", lesson)
}

// LockerAvailability handles GET /api/lockers/availability
func (h *LessonHandler) LockerAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.LockerAvailability(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "locker availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}
