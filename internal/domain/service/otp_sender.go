package service

import (
	"context"

	"marketplace/internal/domain/entity"
)

// OTPDelivery is one code bound for one recipient.
type OTPDelivery struct {
	Channel     entity.Channel
	Recipient   string
	Code        string
	DisplayName string
	Purpose     entity.OtpPurpose
}

// OTPSender delivers one-time codes over email or SMS. Delivery is
// synchronous; any failure is reported as ErrDeliveryFailed.
type OTPSender interface {
	Deliver(ctx context.Context, delivery OTPDelivery) error
}
