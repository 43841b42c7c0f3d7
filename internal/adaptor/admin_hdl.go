package adaptor

import (
	"encoding/json"
	"net/http"

	"lesson-enrollment/internal/dto/request"
	"lesson-enrollment/internal/usecase"
	"lesson-enrollment/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AdminHandler struct {
	cancellation usecase.CancellationService
	lesson       usecase.LessonService
	log          *zap.Logger
}

func NewAdminHandler(cancellation usecase.CancellationService, lesson usecase.LessonService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		cancellation: cancellation,
		lesson:       lesson,
		log:          log.With(zap.String("handler", "admin")),
	}
}

// CancelEnrollment handles POST /api/admin/enrollments/{enrollmentID}/cancel
func (h *AdminHandler) CancelEnrollment(w http.ResponseWriter, r *http.Request) {
	enrollmentID, err := utils.ParseInt64(chi.URLParam(r, "enrollmentID"))
	if err != nil || enrollmentID <= 0 {
		utils.ResponseBadRequest(w, "Invalid enrollment ID", nil)
		return
	}

	var req request.AdminCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.cancellation.AdminCancel(r.Context(), enrollmentID, &req); err != nil {
		handleServiceError(w, h.log, err, "admin cancel")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// ApproveCancel handles POST /api/admin/enrollments/{enrollmentID}/approve-cancel
func (h *AdminHandler) ApproveCancel(w http.ResponseWriter, r *http.Request) {
	enrollmentID, err := utils.ParseInt64(chi.URLParam(r, "enrollmentID"))
	if err != nil || enrollmentID <= 0 {
		utils.ResponseBadRequest(w, "Invalid enrollment ID", nil)
		return
	}

	var req request.ApproveCancelRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return
		}
	}

	breakdown, err := h.cancellation.ApproveCancel(r.Context(), enrollmentID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "approve cancellation")
		return
	}

	utils.ResponseSuccess(w, "success", breakdown)
}

// DenyCancel handles POST /api/admin/enrollments/{enrollmentID}/deny-cancel
func (h *AdminHandler) DenyCancel(w http.ResponseWriter, r *http.Request) {
	enrollmentID, err := utils.ParseInt64(chi.URLParam(r, "enrollmentID"))
	if err != nil || enrollmentID <= 0 {
		utils.ResponseBadRequest(w, "Invalid enrollment ID", nil)
		return
	}

	if err := h.cancellation.DenyCancel(r.Context(), enrollmentID); err != nil {
		handleServiceError(w, h.log, err, "deny cancellation")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// UpdateLockerCapacity handles PUT /api/admin/lockers/{gender}
func (h *AdminHandler) UpdateLockerCapacity(w http.ResponseWriter, r *http.Request) {
	gender := chi.URLParam(r, "gender")

	var req request.UpdateLockerCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	availability, err := h.lesson.UpdateLockerCapacity(r.Context(), gender, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update locker capacity")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}
