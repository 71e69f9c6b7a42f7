package entity

import (
	"time"

	"github.com/google/uuid"
)

// AccountEventType names a lifecycle transition published to downstream consumers.
type AccountEventType string

const (
	EventAccountRegistered      AccountEventType = "account.registered"
	EventAccountPasswordReset   AccountEventType = "account.password_reset"
	EventAccountPasswordChanged AccountEventType = "account.password_changed"
)

// AccountEvent is published after the corresponding transaction commits.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	AccountID  uuid.UUID        `json:"account_id"`
	Role       Role             `json:"role"`
	OccurredAt time.Time        `json:"occurred_at"`
	RequestID  string           `json:"request_id,omitempty"` // For distributed tracing
}
