package adaptor

import (
	"net/http"

	"lesson-enrollment/internal/usecase"
	"lesson-enrollment/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Enrollment *EnrollmentHandler
	Webhook    *WebhookHandler
	Admin      *AdminHandler
	Lesson     *LessonHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Enrollment: NewEnrollmentHandler(service.Enrollment, service.Cancellation, log),
		Webhook:    NewWebhookHandler(service.Webhook, log),
		Admin:      NewAdminHandler(service.Cancellation, service.Lesson, log),
		Lesson:     NewLessonHandler(service.Lesson, log),
	}
}

// handleServiceError maps typed business errors onto HTTP responses.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	be, ok := utils.AsBusinessError(err)
	if !ok {
		log.Error(operation+" failed", zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	log.Warn(operation+" rejected",
		zap.String("code", be.Code),
		zap.String("operation", operation),
		zap.Error(err),
	)

	switch be.Code {
	case utils.CodeNotFound:
		utils.ResponseNotFound(w, be.Message)
	case utils.CodeForbidden:
		utils.ResponseForbidden(w, be.Message)
	case utils.CodeCapacityExceeded, utils.CodeDuplicateEnrollment, utils.CodeMonthlyLimit, utils.CodeAlreadyRefunded:
		utils.ResponseConflict(w, be.Message)
	case utils.CodeRegistrationClosed, utils.CodeInvalidState, utils.CodeLockerUnavailable:
		utils.ResponseBadRequest(w, be.Message, nil)
	case utils.CodeRetryExhausted:
		utils.ResponseJSON(w, http.StatusServiceUnavailable, false, be.Message, nil, nil)
	case utils.CodeGatewayError:
		utils.ResponseJSON(w, http.StatusBadGateway, false, be.Message, nil, nil)
	case utils.CodeGatewayRejected:
		utils.ResponseJSON(w, http.StatusUnprocessableEntity, false, be.Message, nil, nil)
	default:
		utils.ResponseBadRequest(w, be.Message, nil)
	}
}
