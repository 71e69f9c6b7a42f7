package impl

import (
	"context"
	"log/slog"
	"time"

	"marketplace/internal/domain/repository"
	"marketplace/internal/domain/service"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"
)

const (
	// staleRegistrationGrace is how long an expired pending row survives the sweeper.
	staleRegistrationGrace = time.Hour
	staleRegistrationBatch = 100
)

// maintenanceService implements the MaintenanceUsecase interface.
type maintenanceService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	pendingRepo      repository.PendingRegistrationRepository
	objectStore      service.ObjectStore
	logger           *slog.Logger
	now              func() time.Time
}

// NewMaintenanceService is the constructor for maintenanceService.
func NewMaintenanceService(
	refreshTokenRepo repository.RefreshTokenRepository,
	pendingRepo repository.PendingRegistrationRepository,
	objectStore service.ObjectStore,
	logger *slog.Logger,
) usecase.MaintenanceUsecase {
	return &maintenanceService{
		refreshTokenRepo: refreshTokenRepo,
		pendingRepo:      pendingRepo,
		objectStore:      objectStore,
		logger:           logger,
		now:              time.Now,
	}
}

// Sweep deletes expired or revoked refresh tokens and destroys abandoned
// pending registrations together with their uploaded handles.
func (srv *maintenanceService) Sweep(ctx context.Context) (*usecase.SweepResult, error) {
	now := srv.now()
	result := &usecase.SweepResult{}

	deleted, err := srv.refreshTokenRepo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete expired refresh tokens")
	}
	result.RefreshTokensDeleted = deleted

	stale, err := srv.pendingRepo.FindStale(ctx, now.Add(-staleRegistrationGrace), staleRegistrationBatch)
	if err != nil {
		return result, errors.Wrap(err, "failed to find stale registrations")
	}

	for _, row := range stale {
		if err := srv.pendingRepo.Clear(ctx, row.ID); err != nil {
			srv.logger.Warn("Failed to clear stale registration", slog.String("id", row.ID.String()), slog.Any("error", err))

			continue
		}
		result.PendingRegistrationsCleared++

		for _, handle := range row.IDImageRefs {
			if err := srv.objectStore.Delete(ctx, handle); err != nil {
				srv.logger.Warn("Failed to release upload handle", slog.String("handle", handle), slog.Any("error", err))

				continue
			}
			result.HandlesReleased++
		}
	}

	return result, nil
}
