// Package notify delivers formatted transaction messages to a chat webhook or mailbox.
package notify

import (
	"context"
	"fmt"

	"github.com/Dan9191/mercury-notifier/internal/config"
	"github.com/Dan9191/mercury-notifier/internal/formatter"
	"github.com/sirupsen/logrus"
)

// Sink delivers one message synchronously
type Sink interface {
	Send(ctx context.Context, msg formatter.Message) error
}

// HTTPError is returned when a webhook answers with a non-success status
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

// NewSink builds the sink selected by cfg.Sink
func NewSink(cfg *config.Config, log *logrus.Logger) (Sink, error) {
	switch cfg.Sink {
	case config.SinkSlack, "":
		return NewSlackSink(cfg, log), nil
	case config.SinkEmail:
		return NewEmailSink(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown sink: %s", cfg.Sink)
	}
}
