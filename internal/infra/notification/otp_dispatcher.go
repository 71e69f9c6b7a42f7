package notification

import (
	"bytes"
	"context"
	"log/slog"
	"text/template"

	"marketplace/config"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/service"

	"github.com/pkg/errors"
)

var subjects = map[entity.OtpPurpose]string{
	entity.PurposeRegistration:  "Your verification code",
	entity.PurposePasswordReset: "Your password reset code",
}

var bodies = map[entity.OtpPurpose]*template.Template{
	entity.PurposeRegistration: template.Must(template.New("registration").Parse(
		"Hi {{.Name}},\n\nYour verification code is {{.Code}}. It expires in {{.Minutes}} minutes.\n",
	)),
	entity.PurposePasswordReset: template.Must(template.New("passwordReset").Parse(
		"Hi {{.Name}},\n\nUse {{.Code}} to reset your password. It expires in {{.Minutes}} minutes. " +
			"If you did not ask for this, ignore this message.\n",
	)),
}

// otpDispatcher implements service.OTPSender over the configured channels.
type otpDispatcher struct {
	senders map[entity.Channel]messageSender
	logger  *slog.Logger
}

// NewOTPSender builds the dispatcher from the notification config. A channel
// without credentials is left out and deliveries to it fail.
func NewOTPSender(cfg *config.Config, logger *slog.Logger) service.OTPSender {
	senders := make(map[entity.Channel]messageSender, 2)
	if cfg.Notification != nil {
		if cfg.Notification.Email != nil && cfg.Notification.Email.Host != "" {
			senders[entity.ChannelEmail] = newEmailSender(cfg.Notification.Email)
		}
		if cfg.Notification.SMS != nil && cfg.Notification.SMS.AccountSID != "" {
			senders[entity.ChannelSMS] = newSMSSender(cfg.Notification.SMS)
		}
	}

	for _, channel := range []entity.Channel{entity.ChannelEmail, entity.ChannelSMS} {
		if _, ok := senders[channel]; !ok {
			logger.Warn("OTP channel not configured", slog.String("channel", channel.String()))
		}
	}

	return &otpDispatcher{senders: senders, logger: logger}
}

// Deliver renders the message for the purpose and sends it synchronously.
func (d *otpDispatcher) Deliver(ctx context.Context, delivery service.OTPDelivery) error {
	sender, ok := d.senders[delivery.Channel]
	if !ok {
		return domainerrors.ErrDeliveryFailed.WrapMessage("channel not configured: " + delivery.Channel.String())
	}

	body, err := renderBody(delivery)
	if err != nil {
		return domainerrors.ErrDeliveryFailed.WrapMessage(err.Error())
	}

	if err := sender.Send(ctx, delivery.Recipient, subjects[delivery.Purpose], body); err != nil {
		d.logger.ErrorContext(ctx, "OTP delivery failed",
			slog.String("channel", delivery.Channel.String()),
			slog.String("purpose", delivery.Purpose.String()),
			slog.Any("error", err),
		)

		return domainerrors.ErrDeliveryFailed.WrapMessage(err.Error())
	}

	d.logger.InfoContext(ctx, "OTP delivered",
		slog.String("channel", delivery.Channel.String()),
		slog.String("purpose", delivery.Purpose.String()),
	)

	return nil
}

func renderBody(delivery service.OTPDelivery) (string, error) {
	tmpl, ok := bodies[delivery.Purpose]
	if !ok {
		return "", errors.Errorf("unknown otp purpose %q", delivery.Purpose)
	}

	name := delivery.DisplayName
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Name    string
		Code    string
		Minutes int
	}{
		Name:    name,
		Code:    delivery.Code,
		Minutes: int(entity.OtpTTL.Minutes()),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to render otp message")
	}

	return buf.String(), nil
}
