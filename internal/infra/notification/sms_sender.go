package notification

import (
	"context"

	"marketplace/config"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio API the sender needs.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// smsSender sends text messages through Twilio.
type smsSender struct {
	api  messageCreator
	from string
}

func newSMSSender(cfg *config.TwilioConfig) *smsSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &smsSender{api: client.Api, from: cfg.From}
}

// Send ignores the subject; SMS has none.
func (s *smsSender) Send(ctx context.Context, recipient, _ string, body string) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.api.CreateMessage(params); err != nil {
		return errors.Wrap(err, "failed to send sms")
	}

	return nil
}
