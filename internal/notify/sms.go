package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gunaso/grievance-service/internal/config"
)

// NewSMSSender returns an HTTP gateway sender, or a logging simulation when no gateway is set.
func NewSMSSender(cfg config.SMSConfig, logger *zap.Logger) SMSSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return &LogSMSSender{logger: logger}
	}
	return &GatewaySMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"text"`
}

// GatewaySMSSender posts messages to a JSON SMS gateway.
type GatewaySMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

// SendSMS implements SMSSender.
func (s *GatewaySMSSender) SendSMS(ctx context.Context, phone, message string) error {
	if phone == "" {
		return nil
	}
	payload, err := json.Marshal(smsRequest{To: phone, From: s.cfg.Sender, Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// LogSMSSender simulates delivery by logging the message.
type LogSMSSender struct {
	logger *zap.Logger
}

// SendSMS implements SMSSender.
func (s *LogSMSSender) SendSMS(_ context.Context, phone, message string) error {
	if phone == "" {
		return nil
	}
	s.logger.Info("sms simulation", zap.String("to", phone), zap.String("message", message))
	return nil
}
