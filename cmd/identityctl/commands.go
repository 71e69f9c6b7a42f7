package main

import (
	"context"
	"log/slog"

	"marketplace/config"
	"marketplace/internal/domain/lifecycle"
	"marketplace/internal/infra/auth"
	logs "marketplace/internal/infra/log"
	"marketplace/internal/infra/persistence/postgres"
	"marketplace/internal/infra/storage"
	"marketplace/internal/usecase"
	"marketplace/internal/usecase/impl"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// withApp starts a short-lived container holding the persistence stack,
// runs fn with it and stops the container again.
func withApp(ctx context.Context, fn func(deps commandDeps) error) error {
	var deps commandDeps
	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
			postgres.NewRefreshTokenRepository,
			postgres.NewPendingRegistrationRepository,
			postgres.NewAdministratorRepository,
			auth.NewBcryptHasher,
			storage.NewObjectStore,
			impl.NewAdministratorService,
			impl.NewMaintenanceService,
		),
		fx.Populate(&deps.db, &deps.logger, &deps.admins, &deps.maintenance),
	)

	startCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return errors.Wrap(err, "failed to start")
	}

	runErr := fn(deps)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return errors.Wrap(err, "failed to stop")
	}

	return runErr
}

type commandDeps struct {
	db          *gorm.DB
	logger      *slog.Logger
	admins      usecase.AdministratorUsecase
	maintenance usecase.MaintenanceUsecase
}

func runMigrate(ctx context.Context) error {
	return withApp(ctx, func(deps commandDeps) error {
		if err := postgres.Migrate(deps.db.WithContext(ctx)); err != nil {
			return err
		}
		deps.logger.Info("Identity tables migrated")

		return nil
	})
}

func runBootstrap(ctx context.Context, name, email, password string) error {
	return withApp(ctx, func(deps commandDeps) error {
		admin, created, err := deps.admins.Bootstrap(ctx, name, email, password)
		if err != nil {
			return errors.Wrap(err, "bootstrap super-admin")
		}

		if !created {
			deps.logger.Info("Super-admin already exists", slog.String("admin_id", admin.ID.String()))

			return nil
		}
		deps.logger.Info("Super-admin created",
			slog.String("admin_id", admin.ID.String()),
			slog.String("email", admin.Email),
		)

		return nil
	})
}

func runSweep(ctx context.Context) error {
	return withApp(ctx, func(deps commandDeps) error {
		result, err := deps.maintenance.Sweep(ctx)
		if err != nil {
			return err
		}

		deps.logger.Info("Sweep finished",
			slog.Int64("refresh_tokens_deleted", result.RefreshTokensDeleted),
			slog.Int("pending_registrations_cleared", result.PendingRegistrationsCleared),
			slog.Int("handles_released", result.HandlesReleased),
		)

		return nil
	})
}
