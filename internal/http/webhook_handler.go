package httpapi

import (
	"net/http"
	"strconv"

	"samaj-census/internal/service"

	"go.uber.org/zap"
)

// WebhookResponse webhook 响应体
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WebhookHandler 接收 Twilio WhatsApp 入站消息
type WebhookHandler struct {
	svc       service.WhatsAppService
	ownNumber string // the system's sending number; inbound from it is rejected
	logger    *zap.Logger
}

func NewWebhookHandler(svc service.WhatsAppService, ownNumber string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, ownNumber: ownNumber, logger: logger}
}

// Webhook handles the form-encoded Twilio POST. Business-level failures
// still answer 200 with success=false; 400 is reserved for malformed
// payloads, 500 for unhandled faults.
func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, WebhookResponse{
			Success: false,
			Message: "Malformed webhook payload",
		})
		return
	}

	if numMedia := r.PostFormValue("NumMedia"); numMedia != "" {
		if n, err := strconv.Atoi(numMedia); err == nil && n > 0 {
			writeJSON(w, http.StatusBadRequest, WebhookResponse{
				Success: false,
				Message: "Media attachments are not supported. Please send text messages only.",
			})
			return
		}
	}

	from := service.NormalizePhone(r.PostFormValue("From"))
	body := r.PostFormValue("Body")
	if from == "" {
		writeJSON(w, http.StatusBadRequest, WebhookResponse{
			Success: false,
			Message: "Missing sender",
		})
		return
	}
	if from == h.ownNumber {
		h.logger.Warn("Rejected message from own sending number")
		writeJSON(w, http.StatusBadRequest, WebhookResponse{
			Success: false,
			Message: "Invalid sender",
		})
		return
	}

	reply, delivered, err := h.svc.HandleInbound(r.Context(), from, body)
	if err != nil {
		h.logger.Error("Unhandled webhook fault",
			zap.String("from", from),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, WebhookResponse{
			Success: false,
			Message: "An unexpected error occurred",
		})
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{Success: delivered, Message: reply})
}
