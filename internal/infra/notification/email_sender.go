package notification

import (
	"context"
	"time"

	"marketplace/config"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 15 * time.Second

// emailSender sends plain-text mail through an SMTP relay.
type emailSender struct {
	cfg *config.SMTPConfig
}

func newEmailSender(cfg *config.SMTPConfig) *emailSender {
	return &emailSender{cfg: cfg}
}

func (s *emailSender) Send(ctx context.Context, recipient, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return errors.Wrap(err, "invalid sender address")
	}
	if err := msg.To(recipient); err != nil {
		return errors.Wrap(err, "invalid recipient address")
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return errors.Wrap(err, "failed to create smtp client")
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "failed to send mail")
	}

	return nil
}

func (s *emailSender) clientOptions() []mail.Option {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}

	options := []mail.Option{
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Port != 0 {
		options = append(options, mail.WithPort(s.cfg.Port))
	}
	if s.cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return options
}
