package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "marketplace/internal/delivery/context"
	"marketplace/internal/domain/entity"
	"marketplace/internal/domain/service"
)

// publishAccountEvent emits a lifecycle event after commit. Failures are logged only.
func publishAccountEvent(
	ctx context.Context,
	publisher service.EventPublisher,
	logger *slog.Logger,
	eventType entity.AccountEventType,
	account *entity.Account,
) {
	if publisher == nil {
		return
	}

	event := &entity.AccountEvent{
		Type:       eventType,
		AccountID:  account.ID,
		Role:       account.Role,
		OccurredAt: time.Now().UTC(),
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
	}
	if err := publisher.PublishAccountEvent(ctx, event); err != nil {
		logger.Warn("Failed to publish account event",
			slog.String("type", string(eventType)),
			slog.String("accountID", account.ID.String()),
			slog.Any("error", err))
	}
}
