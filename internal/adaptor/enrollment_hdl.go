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

type EnrollmentHandler struct {
	service      usecase.EnrollmentService
	cancellation usecase.CancellationService
	log          *zap.Logger
}

func NewEnrollmentHandler(service usecase.EnrollmentService, cancellation usecase.CancellationService, log *zap.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service:      service,
		cancellation: cancellation,
		log:          log.With(zap.String("handler", "enrollment")),
	}
}

// Create handles POST /api/enrollments
func (h *EnrollmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	enrollment, err := h.service.CreateEnrollment(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create enrollment")
		return
	}

	utils.ResponseCreated(w, "success", enrollment)
}

// CreateRenewal handles POST /api/enrollments/renewal
func (h *EnrollmentHandler) CreateRenewal(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.RenewalEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	enrollment, err := h.service.CreateRenewal(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create renewal")
		return
	}

	utils.ResponseCreated(w, "success", enrollment)
}

// CheckEligibility handles GET /api/lessons/{lessonID}/eligibility
func (h *EnrollmentHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	lessonID, err := utils.ParseInt64(chi.URLParam(r, "lessonID"))
	if err != nil || lessonID <= 0 {
		utils.ResponseBadRequest(w, "Invalid lesson ID", nil)
		return
	}

	eligibility, err := h.service.CheckEligibility(r.Context(), userID, lessonID)
	if err != nil {
		handleServiceError(w, h.log, err, "check eligibility")
		return
	}

	utils.ResponseSuccess(w, "success", eligibility)
}

// GetMine handles GET /api/enrollments
func (h *EnrollmentHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseIntDefault(query.Get("page"), 1),
		PerPage: utils.ParseIntDefault(query.Get("per_page"), 10),
	}

	enrollments, err := h.service.GetUserEnrollments(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "get enrollments")
		return
	}

	utils.ResponseSuccess(w, "success", enrollments)
}

// Cancel handles POST /api/enrollments/{enrollmentID}/cancel
func (h *EnrollmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserID(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	enrollmentID, err := utils.ParseInt64(chi.URLParam(r, "enrollmentID"))
	if err != nil || enrollmentID <= 0 {
		utils.ResponseBadRequest(w, "Invalid enrollment ID", nil)
		return
	}

	var req request.CancelEnrollmentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return
		}
	}

	if err := h.cancellation.RequestCancel(r.Context(), userID, enrollmentID, &req); err != nil {
		handleServiceError(w, h.log, err, "request cancellation")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// RefundPreview handles GET /api/enrollments/{enrollmentID}/refund-preview
func (h *EnrollmentHandler) RefundPreview(w http.ResponseWriter, r *http.Request) {
	if _, ok := utils.GetUserID(r.Context()); !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	enrollmentID, err := utils.ParseInt64(chi.URLParam(r, "enrollmentID"))
	if err != nil || enrollmentID <= 0 {
		utils.ResponseBadRequest(w, "Invalid enrollment ID", nil)
		return
	}

	var usedDays *int
	if raw := r.URL.Query().Get("used_days"); raw != "" {
		days := utils.ParseIntDefault(raw, -1)
		if days < 0 {
			utils.ResponseBadRequest(w, "Invalid used_days", nil)
			return
		}
		usedDays = &days
	}

	preview, err := h.cancellation.RefundPreview(r.Context(), enrollmentID, usedDays)
	if err != nil {
		handleServiceError(w, h.log, err, "refund preview")
		return
	}

	utils.ResponseSuccess(w, "success", preview)
}
