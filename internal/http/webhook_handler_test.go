package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"samaj-census/internal/repository"
	"samaj-census/internal/service"
	"samaj-census/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubWhatsApp struct {
	reply     string
	delivered bool
	err       error
	lastFrom  string
	lastBody  string
}

func (s *stubWhatsApp) HandleInbound(_ context.Context, from, body string) (string, bool, error) {
	s.lastFrom = from
	s.lastBody = body
	return s.reply, s.delivered, s.err
}

func postWebhook(h *WebhookHandler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)
	return rec
}

func decodeWebhookResponse(t *testing.T, rec *httptest.ResponseRecorder) WebhookResponse {
	t.Helper()
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWebhookHappyPath(t *testing.T) {
	stub := &stubWhatsApp{reply: "Welcome!", delivered: true}
	h := NewWebhookHandler(stub, "+14155238886", zap.NewNop())

	rec := postWebhook(h, url.Values{
		"From": {"whatsapp:+919876543210"},
		"Body": {"Start"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Welcome!", resp.Message)
	assert.Equal(t, "+919876543210", stub.lastFrom)
	assert.Equal(t, "Start", stub.lastBody)
}

func TestWebhookRejectsMedia(t *testing.T) {
	h := NewWebhookHandler(&stubWhatsApp{}, "+14155238886", zap.NewNop())

	rec := postWebhook(h, url.Values{
		"From":     {"whatsapp:+919876543210"},
		"Body":     {""},
		"NumMedia": {"1"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "Media attachments are not supported. Please send text messages only.", resp.Message)
}

func TestWebhookRejectsMissingSender(t *testing.T) {
	h := NewWebhookHandler(&stubWhatsApp{}, "+14155238886", zap.NewNop())

	rec := postWebhook(h, url.Values{"Body": {"Start"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing sender", decodeWebhookResponse(t, rec).Message)
}

func TestWebhookRejectsOwnNumber(t *testing.T) {
	h := NewWebhookHandler(&stubWhatsApp{}, "+14155238886", zap.NewNop())

	rec := postWebhook(h, url.Values{
		"From": {"whatsapp:+14155238886"},
		"Body": {"Start"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid sender", decodeWebhookResponse(t, rec).Message)
}

func TestWebhookUndeliveredReplyStillOK(t *testing.T) {
	stub := &stubWhatsApp{reply: "Failed to send response message", delivered: false}
	h := NewWebhookHandler(stub, "+14155238886", zap.NewNop())

	rec := postWebhook(h, url.Values{
		"From": {"whatsapp:+919876543210"},
		"Body": {"Start"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestWebhookSystemFaultAnswers500(t *testing.T) {
	stub := &stubWhatsApp{err: errors.New("session store down")}
	h := NewWebhookHandler(stub, "+14155238886", zap.NewNop())

	rec := postWebhook(h, url.Values{
		"From": {"whatsapp:+919876543210"},
		"Body": {"Start"},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An unexpected error occurred", decodeWebhookResponse(t, rec).Message)
}

// Routed through the real service and stores, a stray message yields the
// start instruction.
func TestWebhookNoSessionInstructsStart(t *testing.T) {
	sender := &capturingSender{}
	svc := service.NewWhatsAppService(
		store.NewMemorySessionStore(0),
		repository.NewMemoryCensusRepository(),
		sender,
		zap.NewNop(),
	)
	h := NewWebhookHandler(svc, "+14155238886", zap.NewNop())

	rec := postWebhook(h, url.Values{
		"From": {"whatsapp:+919876543210"},
		"Body": {"hello"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeWebhookResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Please send 'Start' to begin the data collection process.", resp.Message)
}

type capturingSender struct{ sent []string }

func (c *capturingSender) Send(_ context.Context, _, body string) error {
	c.sent = append(c.sent, body)
	return nil
}
