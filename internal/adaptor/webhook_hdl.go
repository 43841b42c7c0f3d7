package adaptor

import (
	"net"
	"net/http"

	"lesson-enrollment/internal/dto/request"
	"lesson-enrollment/internal/usecase"

	"go.uber.org/zap"
)

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// KispgNotification handles POST /api/payment/kispg/notification.
// The gateway expects a literal OK or FAIL body, not the JSON
// envelope; anything but OK triggers its redelivery.
func (h *WebhookHandler) KispgNotification(w http.ResponseWriter, r *http.Request) {
	notification, err := request.ParseKispgNotification(r)
	if err != nil {
		h.log.Warn("Unparseable webhook payload", zap.Error(err))
		writeWebhookResult(w, usecase.WebhookFail)
		return
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	result := h.service.ProcessNotification(r.Context(), notification, remoteIP)
	writeWebhookResult(w, result)
}

func writeWebhookResult(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result))
}
