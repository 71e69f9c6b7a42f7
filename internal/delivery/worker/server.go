// Package worker runs background maintenance next to the API server.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"marketplace/config"
	"marketplace/internal/delivery"
	deliverycontext "marketplace/internal/delivery/context"
	"marketplace/internal/domain/lifecycle"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// SweeperParams holds dependencies for the sweeper, injected by Fx.
type SweeperParams struct {
	fx.In

	Lc          fx.Lifecycle
	Cfg         *config.Config
	Logger      *slog.Logger
	Maintenance usecase.MaintenanceUsecase
}

// sweeper periodically removes dead refresh tokens and abandoned registrations.
type sweeper struct {
	interval    time.Duration
	logger      *slog.Logger
	maintenance usecase.MaintenanceUsecase

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper creates the maintenance delivery.
func NewSweeper(params SweeperParams) (delivery.Delivery, error) {
	s := newSweeper(params.Cfg.Maintenance.SweepInterval, params.Logger, params.Maintenance)

	params.Lc.Append(fx.Hook{
		OnStop: s.stop,
	})

	return s, nil
}

func newSweeper(interval time.Duration, logger *slog.Logger, maintenance usecase.MaintenanceUsecase) *sweeper {
	return &sweeper{
		interval:    interval,
		logger:      logger.With(slog.String("component", "sweeper")),
		maintenance: maintenance,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Serve sweeps once immediately, then on every tick until stopped.
func (s *sweeper) Serve(ctx context.Context) error {
	s.started.Store(true)
	defer close(s.doneCh)

	s.logger.Info("Starting maintenance sweeper", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)

		select {
		case <-ticker.C:
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *sweeper) sweep(ctx context.Context) {
	runID := uuid.New().String()
	logger := s.logger.With(slog.String("request_id", runID))

	sweepCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()
	sweepCtx = deliverycontext.WithRequestID(sweepCtx, runID)
	sweepCtx = deliverycontext.WithLogger(sweepCtx, logger)

	result, err := s.maintenance.Sweep(sweepCtx)
	if err != nil {
		logger.Error("Maintenance sweep failed", slog.Any("error", err))
	}
	if result == nil {
		return
	}

	logger.Info("Maintenance sweep finished",
		slog.Int64("refresh_tokens_deleted", result.RefreshTokensDeleted),
		slog.Int("pending_registrations_cleared", result.PendingRegistrationsCleared),
		slog.Int("handles_released", result.HandlesReleased),
	)
}

func (s *sweeper) stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if !s.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	s.logger.Info("Shutting down maintenance sweeper")

	select {
	case <-s.doneCh:
		return nil
	case <-shutdownCtx.Done():
		return errors.WithStack(shutdownCtx.Err())
	}
}
