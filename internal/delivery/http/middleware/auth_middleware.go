package middleware

import (
	"strings"

	deliverycontext "marketplace/internal/delivery/context"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/domain/service"
	"marketplace/internal/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const bearerPrefix = "Bearer "

// AuthMiddleware authenticates bearer access tokens and enforces principal
// kind, active state and administrator capabilities.
type AuthMiddleware struct {
	tokenSvc    service.TokenService
	accountRepo repository.AccountRepository
	adminRepo   repository.AdministratorRepository
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	TokenService service.TokenService
	AccountRepo  repository.AccountRepository
	AdminRepo    repository.AdministratorRepository
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc:    params.TokenService,
		accountRepo: params.AccountRepo,
		adminRepo:   params.AdminRepo,
	}
}

// RequireAccount admits only access tokens issued to an active Account.
func (m *AuthMiddleware) RequireAccount(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.authenticate(c, entity.PrincipalAccount)
		if err != nil {
			return err
		}

		account, err := m.accountRepo.FindByID(c.Request().Context(), claims.PrincipalID)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return errors.WithStack(domainerrors.ErrUnauthorized)
		}
		if err != nil {
			return errors.Wrap(err, "failed to load account principal")
		}
		if !account.Active {
			return errors.WithStack(domainerrors.ErrAccountDeactivated)
		}

		deliverycontext.SetPrincipal(c, &deliverycontext.Principal{
			ID:   account.ID,
			Kind: entity.PrincipalAccount,
			Role: account.Role.String(),
		})

		return next(c)
	}
}

// RequireAdministrator admits only access tokens issued to an active Administrator.
func (m *AuthMiddleware) RequireAdministrator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := m.authenticate(c, entity.PrincipalAdministrator)
		if err != nil {
			return err
		}

		admin, err := m.adminRepo.FindByID(c.Request().Context(), claims.PrincipalID)
		if errors.Is(err, repository.ErrAdministratorNotFound) {
			return errors.WithStack(domainerrors.ErrUnauthorized)
		}
		if err != nil {
			return errors.Wrap(err, "failed to load administrator principal")
		}
		if !admin.Active {
			return errors.WithStack(domainerrors.ErrAccountDeactivated)
		}

		deliverycontext.SetPrincipal(c, &deliverycontext.Principal{
			ID:            admin.ID,
			Kind:          entity.PrincipalAdministrator,
			Role:          admin.Role.String(),
			Administrator: admin,
		})

		return next(c)
	}
}

// RequirePermission must run after RequireAdministrator. Super-admins pass
// every capability check.
func (m *AuthMiddleware) RequirePermission(permission entity.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := deliverycontext.GetPrincipal(c)
			if !ok || !principal.IsAdministrator() {
				return errors.WithStack(domainerrors.ErrUnauthorized)
			}
			if !principal.Administrator.HasPermission(permission) {
				return errors.WithStack(domainerrors.ErrForbidden.WithMessage("Missing permission " + permission.String()))
			}

			return next(c)
		}
	}
}

// RequireSuperAdmin must run after RequireAdministrator.
func (m *AuthMiddleware) RequireSuperAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := deliverycontext.GetPrincipal(c)
		if !ok || !principal.IsAdministrator() {
			return errors.WithStack(domainerrors.ErrUnauthorized)
		}
		if !principal.Administrator.IsSuperAdmin() {
			return errors.WithStack(domainerrors.ErrForbidden.WithMessage("Super-admin role required"))
		}

		return next(c)
	}
}

// authenticate verifies the bearer access token and its principal kind. A
// token of the other kind is treated as no credential at all.
func (m *AuthMiddleware) authenticate(c echo.Context, kind entity.PrincipalKind) (*service.Claims, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return nil, errors.WithStack(domainerrors.ErrUnauthorized.WithMessage("Authorization header is missing"))
	}
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return nil, errors.WithStack(domainerrors.ErrUnauthorized.WithMessage("Authorization header must be a Bearer token"))
	}

	claims, err := m.tokenSvc.ParseAccessToken(strings.TrimSpace(header[len(bearerPrefix):]))
	if err != nil {
		return nil, err
	}
	if claims.PrincipalKind != kind {
		return nil, errors.WithStack(domainerrors.ErrUnauthorized)
	}

	return claims, nil
}
