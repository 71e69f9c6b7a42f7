package impl

import (
	"context"
	"log/slog"
	"time"

	"marketplace/config"
	deliverycontext "marketplace/internal/delivery/context"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/domain/service"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// adminAuthService implements the AdminAuthUsecase interface.
type adminAuthService struct {
	adminRepo repository.AdministratorRepository
	hasher    service.PasswordHasher
	limiter   service.AttemptLimiter
	sessions  *sessionManager
	logger    *slog.Logger
	now       func() time.Time
}

// AdminAuthServiceParams holds dependencies for AdminAuthService, injected by Fx.
type AdminAuthServiceParams struct {
	fx.In

	AdminRepo        repository.AdministratorRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	Limiter          service.AttemptLimiter
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAdminAuthService is the constructor for adminAuthService.
func NewAdminAuthService(params AdminAuthServiceParams) usecase.AdminAuthUsecase {
	return &adminAuthService{
		adminRepo: params.AdminRepo,
		hasher:    params.Hasher,
		limiter:   params.Limiter,
		sessions: newSessionManager(
			entity.PrincipalAdministrator, params.TokenService, params.RefreshTokenRepo, maxActiveSessions(params.Config)),
		logger: params.Logger,
		now:    time.Now,
	}
}

func (srv *adminAuthService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login authenticates an administrator by email and password.
func (srv *adminAuthService) Login(ctx context.Context, input *usecase.AdminLoginInput) (*usecase.AuthSession, error) {
	email := entity.NewContact(input.Email, "").Email
	if email == "" {
		return nil, domainerrors.ErrInvalidInput.WrapMessage("email is required")
	}
	if err := allowAttempt(ctx, srv.limiter, srv.log(ctx), service.LimitScopeLogin, "admin:"+email); err != nil {
		return nil, err
	}

	admin, err := srv.adminRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrAdministratorNotFound) {
		return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find administrator")
	}
	if !srv.hasher.Check(input.Password, admin.PasswordHash) {
		srv.log(ctx).Warn("Administrator login failed", slog.String("adminID", admin.ID.String()))

		return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
	}
	if !admin.Active {
		return nil, errors.WithStack(domainerrors.ErrAccountDeactivated)
	}

	now := srv.now().UTC()
	admin.LastLoginAt = &now
	if err := srv.adminRepo.Update(ctx, admin); err != nil {
		return nil, errors.Wrap(err, "failed to record login")
	}

	tokens, err := srv.sessions.issue(ctx, nil, admin.ID, admin.Role.String(), input.Device)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Administrator logged in", slog.String("adminID", admin.ID.String()))

	return &usecase.AuthSession{
		AuthTokens:    *tokens,
		Administrator: usecase.NewAdministratorSummary(admin),
	}, nil
}

// Refresh rotates an administrator refresh token.
func (srv *adminAuthService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.AuthTokens, error) {
	return srv.sessions.rotate(ctx, input.RefreshToken, input.Device, func(ctx context.Context, id uuid.UUID) (string, error) {
		admin, err := srv.adminRepo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrAdministratorNotFound) {
			return "", errors.WithStack(domainerrors.ErrUnauthorized)
		}
		if err != nil {
			return "", errors.Wrap(err, "failed to load administrator")
		}
		if !admin.Active {
			return "", errors.WithStack(domainerrors.ErrAccountDeactivated)
		}

		return admin.Role.String(), nil
	})
}

// Logout revokes one administrator session.
func (srv *adminAuthService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	return srv.sessions.revoke(ctx, input.PrincipalID, input.RefreshToken)
}

// LogoutAll revokes every live administrator session.
func (srv *adminAuthService) LogoutAll(ctx context.Context, adminID uuid.UUID) (int64, error) {
	return srv.sessions.revokeAll(ctx, adminID)
}

// Me returns the authenticated administrator.
func (srv *adminAuthService) Me(ctx context.Context, adminID uuid.UUID) (*usecase.AdministratorSummary, error) {
	admin, err := srv.adminRepo.FindByID(ctx, adminID)
	if errors.Is(err, repository.ErrAdministratorNotFound) {
		return nil, errors.WithStack(domainerrors.ErrAdministratorNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find administrator")
	}

	return usecase.NewAdministratorSummary(admin), nil
}
