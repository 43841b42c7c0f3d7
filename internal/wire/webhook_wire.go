package wire

import (
	"lesson-enrollment/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireWebhook(r chi.Router, handler *adaptor.WebhookHandler) {
	// The gateway calls this directly. No identity middleware; the
	// service enforces the production IP allow-list and signature.
	r.Post("/api/payment/kispg/notification", handler.KispgNotification)
}
