package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"FarmMonitorAPI/internal/models"
)

// SMSSender posts alerts to an HTTP SMS gateway.
type SMSSender struct {
	url    string
	apiKey string
	client *http.Client
}

type smsPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func NewSMSSender(url, apiKey string) *SMSSender {
	return &SMSSender{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SMSSender) Channel() models.Channel {
	return models.ChannelSMS
}

func (s *SMSSender) Send(ctx context.Context, n Notification, settings models.NotificationSettings) error {
	if s.url == "" {
		return errors.New("sms notifier: empty gateway url")
	}
	if settings.SMS.Number == "" {
		return errors.New("sms notifier: no recipient configured")
	}

	body, err := json.Marshal(smsPayload{
		To:      settings.SMS.Number,
		Message: fmt.Sprintf("%s - %s", subject(n.Alert), n.Alert.Message),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms notifier: gateway returned %d", resp.StatusCode)
	}
	return nil
}
