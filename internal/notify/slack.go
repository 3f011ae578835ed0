package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Dan9191/mercury-notifier/internal/config"
	"github.com/Dan9191/mercury-notifier/internal/formatter"
	"github.com/sirupsen/logrus"
)

type attachment struct {
	Color    string   `json:"color"`
	Fallback string   `json:"fallback"`
	Text     string   `json:"text"`
	MrkdwnIn []string `json:"mrkdwn_in"`
}

type slackPayload struct {
	Attachments []attachment `json:"attachments"`
}

// SlackSink posts colored attachments to a Slack incoming webhook
type SlackSink struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewSlackSink creates a sink for cfg.SlackWebhookURL
func NewSlackSink(cfg *config.Config, log *logrus.Logger) *SlackSink {
	return &SlackSink{
		url: cfg.SlackWebhookURL,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		log: log,
	}
}

func (s *SlackSink) Send(ctx context.Context, msg formatter.Message) error {
	body, err := json.Marshal(slackPayload{Attachments: []attachment{{
		Color:    msg.Direction.Color(),
		Fallback: firstLine(msg.Text),
		Text:     msg.Text,
		MrkdwnIn: []string{"text"},
	}}})
	if err != nil {
		return fmt.Errorf("failed to encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Errorf("Failed to send to Slack: %v", err)
		return fmt.Errorf("failed to send to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		s.log.Errorf("Failed to send to Slack: %v", err)
		return err
	}

	s.log.Infof("Sent to Slack: %.50s...", strings.ReplaceAll(msg.Text, "\n", " "))
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
