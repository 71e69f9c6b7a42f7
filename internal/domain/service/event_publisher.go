package service

import (
	"context"

	"marketplace/internal/domain/entity"
)

// EventPublisher defines the interface for publishing account lifecycle events
type EventPublisher interface {
	// PublishAccountEvent publishes an event after the change is committed
	PublishAccountEvent(ctx context.Context, event *entity.AccountEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
