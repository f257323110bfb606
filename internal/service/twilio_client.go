package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// MessageSender delivers a reply to a respondent over the messaging
// transport. A failure is reported to the caller; it never rolls back
// already-committed business state.
type MessageSender interface {
	Send(ctx context.Context, to, body string) error
}

// twilioMessageResponse Twilio Messages API 响应（仅用到错误字段）
type twilioMessageResponse struct {
	Sid          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"message"`
}

// TwilioClient Twilio WhatsApp 消息客户端
type TwilioClient struct {
	httpClient *resty.Client
	accountSID string
	from       string
	logger     *zap.Logger
}

func NewTwilioClient(baseURL, accountSID, authToken, from string, logger *zap.Logger) *TwilioClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetBasicAuth(accountSID, authToken).
		SetHeader("Accept", "application/json")

	return &TwilioClient{
		httpClient: client,
		accountSID: accountSID,
		from:       from,
		logger:     logger,
	}
}

var _ MessageSender = (*TwilioClient)(nil)

// Send posts one outbound WhatsApp message. No retry loop here: delivery
// failures surface to the caller as delivery failures.
func (c *TwilioClient) Send(ctx context.Context, to, body string) error {
	var response twilioMessageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": "whatsapp:" + c.from,
			"To":   "whatsapp:" + to,
			"Body": body,
		}).
		SetResult(&response).
		SetError(&response).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", c.accountSID))

	if err != nil {
		c.logger.Error("Twilio API call failed",
			zap.Error(err),
			zap.String("to", to),
		)
		return fmt.Errorf("failed to call Twilio API: %w", err)
	}

	if resp.IsError() {
		c.logger.Error("Twilio API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("to", to),
			zap.String("msg", response.ErrorMessage),
		)
		return fmt.Errorf("Twilio API error: %s (status: %d)", response.ErrorMessage, resp.StatusCode())
	}

	c.logger.Info("WhatsApp message sent",
		zap.String("to", to),
		zap.String("sid", response.Sid),
	)
	return nil
}

// LogSender is the dev fallback when Twilio credentials are not configured:
// replies are logged instead of delivered.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender { return &LogSender{logger: logger} }

var _ MessageSender = (*LogSender)(nil)

func (s *LogSender) Send(_ context.Context, to, body string) error {
	s.logger.Info("WhatsApp message (log only)",
		zap.String("to", to),
		zap.String("body", body),
	)
	return nil
}
