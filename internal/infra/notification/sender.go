// Package notification delivers one-time codes over email and SMS.
package notification

import "context"

// messageSender is a single outbound channel.
type messageSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
