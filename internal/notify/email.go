package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Dan9191/mercury-notifier/internal/config"
	"github.com/Dan9191/mercury-notifier/internal/formatter"
	"github.com/Dan9191/mercury-notifier/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// EmailSink handles sending transaction notifications via SMTP
type EmailSink struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   sendFunc
}

// NewEmailSink creates a new email sender
func NewEmailSink(cfg *config.Config, logger *logrus.Logger) *EmailSink {
	return &EmailSink{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// buildEmail renders the message as a plain-text notification email
func (s *EmailSink) buildEmail(msg formatter.Message) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = s.cfg.EmailTo

	verb := "sent"
	if msg.Direction == models.Inbound {
		verb = "received"
	}
	if msg.Account != "" {
		e.Subject = fmt.Sprintf("Mercury %s: %s %s", msg.Account, msg.Amount, verb)
	} else {
		e.Subject = fmt.Sprintf("Mercury: %s %s", msg.Amount, verb)
	}
	e.Text = []byte(msg.Text + "\n")
	return e
}

// Send delivers one notification; ctx is checked before dialing since SMTP sends are not cancelable
func (s *EmailSink) Send(ctx context.Context, msg formatter.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := s.buildEmail(msg)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send notification for %s to %v: %v", msg.TransactionID, e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}
