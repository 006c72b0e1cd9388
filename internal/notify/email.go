package notify

import (
	"context"
	"errors"

	"FarmMonitorAPI/internal/models"

	"gopkg.in/gomail.v2"
)

type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender mails alerts to the address in the notification settings.
type EmailSender struct {
	from   string
	dialer mailDialer
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
	}
}

func (s *EmailSender) Channel() models.Channel {
	return models.ChannelEmail
}

func (s *EmailSender) Send(ctx context.Context, n Notification, settings models.NotificationSettings) error {
	if settings.Email.Address == "" {
		return errors.New("email notifier: no recipient configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", settings.Email.Address)
	m.SetHeader("Subject", subject(n.Alert))
	m.SetDateHeader("Date", n.Alert.Timestamp)
	m.SetBody("text/plain", formatAlertText(n.Alert))

	return s.dialer.DialAndSend(m)
}
