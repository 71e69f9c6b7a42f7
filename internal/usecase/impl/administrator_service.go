package impl

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

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

// administratorService implements the AdministratorUsecase interface.
type administratorService struct {
	adminRepo        repository.AdministratorRepository
	refreshTokenRepo repository.RefreshTokenRepository
	hasher           service.PasswordHasher
	logger           *slog.Logger
}

// AdministratorServiceParams holds dependencies for AdministratorService, injected by Fx.
type AdministratorServiceParams struct {
	fx.In

	AdminRepo        repository.AdministratorRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	Logger           *slog.Logger
}

// NewAdministratorService is the constructor for administratorService.
func NewAdministratorService(params AdministratorServiceParams) usecase.AdministratorUsecase {
	return &administratorService{
		adminRepo:        params.AdminRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		hasher:           params.Hasher,
		logger:           params.Logger,
	}
}

func (srv *administratorService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Create adds an administrator on behalf of a super-admin.
func (srv *administratorService) Create(ctx context.Context, input *usecase.CreateAdministratorInput) (*usecase.AdministratorSummary, error) {
	if _, err := srv.requireSuperAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = entity.AdminRoleAdmin
	}
	permissions, err := parsePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	actorID := input.ActorID
	admin, err := srv.create(ctx, input.FullName, input.Email, input.Password, role, permissions, &actorID)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Administrator created",
		slog.String("adminID", admin.ID.String()), slog.String("createdBy", actorID.String()))

	return usecase.NewAdministratorSummary(admin), nil
}

// Bootstrap creates a super-admin when the email is not yet taken. It reports
// whether a new administrator was created.
func (srv *administratorService) Bootstrap(
	ctx context.Context,
	fullName, email, password string,
) (*usecase.AdministratorSummary, bool, error) {
	existing, err := srv.adminRepo.FindByEmail(ctx, entity.NewContact(email, "").Email)
	if err == nil {
		return usecase.NewAdministratorSummary(existing), false, nil
	}
	if !errors.Is(err, repository.ErrAdministratorNotFound) {
		return nil, false, errors.Wrap(err, "failed to find administrator")
	}

	admin, err := srv.create(ctx, fullName, email, password, entity.AdminRoleSuperAdmin, nil, nil)
	if err != nil {
		return nil, false, err
	}

	return usecase.NewAdministratorSummary(admin), true, nil
}

func (srv *administratorService) create(
	ctx context.Context,
	fullName, email, password string,
	role entity.AdminRole,
	permissions entity.Permissions,
	createdBy *uuid.UUID,
) (*entity.Administrator, error) {
	fullName = strings.TrimSpace(fullName)
	email = entity.NewContact(email, "").Email
	if fullName == "" || email == "" {
		return nil, domainerrors.ErrInvalidInput.WrapMessage("full name and email are required")
	}
	if !role.IsValid() {
		return nil, errors.WithStack(domainerrors.ErrInvalidInput.WithMessage("Role must be super-admin or admin"))
	}
	hash, err := srv.hashAdminPassword(password)
	if err != nil {
		return nil, err
	}

	admin := &entity.Administrator{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Role:         role,
		Permissions:  permissions,
		CreatedBy:    createdBy,
	}
	if err := srv.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrAdministratorEmailTaken) {
			return nil, errors.WithStack(domainerrors.ErrAdministratorEmailTaken)
		}

		return nil, errors.Wrap(err, "failed to create administrator")
	}

	return admin, nil
}

// Update applies a partial update. A super-admin cannot demote itself.
func (srv *administratorService) Update(ctx context.Context, input *usecase.UpdateAdministratorInput) (*usecase.AdministratorSummary, error) {
	if _, err := srv.requireSuperAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	admin, err := srv.findTarget(ctx, input.TargetID)
	if err != nil {
		return nil, err
	}

	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, errors.WithStack(domainerrors.ErrInvalidInput.WithMessage("Role must be super-admin or admin"))
		}
		if admin.ID == input.ActorID && admin.IsSuperAdmin() && *input.Role != entity.AdminRoleSuperAdmin {
			return nil, errors.WithStack(domainerrors.ErrSelfActionForbidden)
		}
		admin.Role = *input.Role
	}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, domainerrors.ErrInvalidInput.WrapMessage("full name cannot be empty")
		}
		admin.FullName = name
	}
	if input.Email != nil {
		email := entity.NewContact(*input.Email, "").Email
		if email == "" {
			return nil, domainerrors.ErrInvalidInput.WrapMessage("email cannot be empty")
		}
		admin.Email = email
	}
	if input.Password != nil {
		if admin.PasswordHash, err = srv.hashAdminPassword(*input.Password); err != nil {
			return nil, err
		}
	}
	if input.Permissions != nil {
		if admin.Permissions, err = parsePermissions(*input.Permissions); err != nil {
			return nil, err
		}
	}

	if err := srv.adminRepo.Update(ctx, admin); err != nil {
		switch {
		case errors.Is(err, repository.ErrAdministratorEmailTaken):
			return nil, errors.WithStack(domainerrors.ErrAdministratorEmailTaken)
		case errors.Is(err, repository.ErrAdministratorNotFound):
			return nil, errors.WithStack(domainerrors.ErrAdministratorNotFound)
		default:
			return nil, errors.Wrap(err, "failed to update administrator")
		}
	}

	return usecase.NewAdministratorSummary(admin), nil
}

// Delete removes another administrator and revokes its sessions.
func (srv *administratorService) Delete(ctx context.Context, actorID, targetID uuid.UUID) error {
	if _, err := srv.requireSuperAdmin(ctx, actorID); err != nil {
		return err
	}
	if actorID == targetID {
		return errors.WithStack(domainerrors.ErrSelfActionForbidden)
	}

	if err := srv.adminRepo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrAdministratorNotFound) {
			return errors.WithStack(domainerrors.ErrAdministratorNotFound)
		}

		return errors.Wrap(err, "failed to delete administrator")
	}
	srv.revokeSessions(ctx, targetID)

	srv.log(ctx).Info("Administrator deleted", slog.String("adminID", targetID.String()), slog.String("deletedBy", actorID.String()))

	return nil
}

// ToggleActive flips the active flag of another administrator.
func (srv *administratorService) ToggleActive(ctx context.Context, actorID, targetID uuid.UUID) (*usecase.AdministratorSummary, error) {
	if _, err := srv.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if actorID == targetID {
		return nil, errors.WithStack(domainerrors.ErrSelfActionForbidden)
	}

	admin, err := srv.findTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	admin.Active = !admin.Active
	if err := srv.adminRepo.Update(ctx, admin); err != nil {
		return nil, errors.Wrap(err, "failed to toggle administrator")
	}
	if !admin.Active {
		srv.revokeSessions(ctx, targetID)
	}

	return usecase.NewAdministratorSummary(admin), nil
}

// List returns every administrator.
func (srv *administratorService) List(ctx context.Context, actorID uuid.UUID) ([]*usecase.AdministratorSummary, error) {
	if _, err := srv.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	admins, err := srv.adminRepo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list administrators")
	}

	summaries := make([]*usecase.AdministratorSummary, 0, len(admins))
	for _, admin := range admins {
		summaries = append(summaries, usecase.NewAdministratorSummary(admin))
	}

	return summaries, nil
}

// Get returns one administrator.
func (srv *administratorService) Get(ctx context.Context, actorID, targetID uuid.UUID) (*usecase.AdministratorSummary, error) {
	if _, err := srv.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	admin, err := srv.findTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	return usecase.NewAdministratorSummary(admin), nil
}

func (srv *administratorService) requireSuperAdmin(ctx context.Context, actorID uuid.UUID) (*entity.Administrator, error) {
	actor, err := srv.adminRepo.FindByID(ctx, actorID)
	if errors.Is(err, repository.ErrAdministratorNotFound) {
		return nil, errors.WithStack(domainerrors.ErrUnauthorized)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load acting administrator")
	}
	if !actor.Active {
		return nil, errors.WithStack(domainerrors.ErrAccountDeactivated)
	}
	if !actor.IsSuperAdmin() {
		return nil, errors.WithStack(domainerrors.ErrForbidden.WithMessage("Super-admin role required"))
	}

	return actor, nil
}

func (srv *administratorService) findTarget(ctx context.Context, id uuid.UUID) (*entity.Administrator, error) {
	admin, err := srv.adminRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAdministratorNotFound) {
		return nil, errors.WithStack(domainerrors.ErrAdministratorNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find administrator")
	}

	return admin, nil
}

func (srv *administratorService) hashAdminPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < entity.MinAdminPasswordLength {
		return "", errors.WithStack(domainerrors.ErrPasswordTooShort.WithMessage("Password must be at least 8 characters"))
	}
	if len(password) > entity.MaxPasswordBytes {
		return "", errors.WithStack(domainerrors.ErrPasswordTooLong)
	}

	hash, err := srv.hasher.Hash(password)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}

	return hash, nil
}

func (srv *administratorService) revokeSessions(ctx context.Context, adminID uuid.UUID) {
	if _, err := srv.refreshTokenRepo.RevokeAllFor(ctx, entity.PrincipalAdministrator, adminID); err != nil {
		srv.log(ctx).Warn("Failed to revoke administrator sessions", slog.String("adminID", adminID.String()), slog.Any("error", err))
	}
}

func parsePermissions(values []string) (entity.Permissions, error) {
	for _, value := range values {
		if !entity.Permission(value).IsValid() {
			return nil, errors.WithStack(domainerrors.ErrInvalidInput.WithDetails("unknown permission " + value))
		}
	}

	return entity.PermissionsFromStrings(values), nil
}
