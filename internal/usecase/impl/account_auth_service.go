package impl

import (
	"context"
	"log/slog"
	"strings"
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

// accountAuthService implements the AccountAuthUsecase interface.
type accountAuthService struct {
	accountRepo       repository.AccountRepository
	profileRepo       repository.ProviderProfileRepository
	hasher            service.PasswordHasher
	googleAuthService service.OAuthAuthService
	limiter           service.AttemptLimiter
	publisher         service.EventPublisher
	sessions          *sessionManager
	logger            *slog.Logger
	now               func() time.Time
}

// AccountAuthServiceParams holds dependencies for AccountAuthService, injected by Fx.
type AccountAuthServiceParams struct {
	fx.In

	AccountRepo       repository.AccountRepository
	ProfileRepo       repository.ProviderProfileRepository
	RefreshTokenRepo  repository.RefreshTokenRepository
	Hasher            service.PasswordHasher
	TokenService      service.TokenService
	GoogleAuthService service.OAuthAuthService `optional:"true"`
	Limiter           service.AttemptLimiter
	Publisher         service.EventPublisher
	Config            *config.Config
	Logger            *slog.Logger
}

// NewAccountAuthService is the constructor for accountAuthService.
func NewAccountAuthService(params AccountAuthServiceParams) usecase.AccountAuthUsecase {
	return &accountAuthService{
		accountRepo:       params.AccountRepo,
		profileRepo:       params.ProfileRepo,
		hasher:            params.Hasher,
		googleAuthService: params.GoogleAuthService,
		limiter:           params.Limiter,
		publisher:         params.Publisher,
		sessions: newSessionManager(
			entity.PrincipalAccount, params.TokenService, params.RefreshTokenRepo, maxActiveSessions(params.Config)),
		logger: params.Logger,
		now:    time.Now,
	}
}

func (srv *accountAuthService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login authenticates an account by contact and password for the expected role.
// Unknown contacts, wrong roles and wrong passwords share one response.
func (srv *accountAuthService) Login(ctx context.Context, input *usecase.AccountLoginInput) (*usecase.AuthSession, error) {
	contact := entity.NewContact(input.Email, input.Phone)
	if contact.IsEmpty() {
		return nil, domainerrors.ErrInvalidInput.WrapMessage("email or phone is required")
	}
	if err := allowAttempt(ctx, srv.limiter, srv.log(ctx), service.LimitScopeLogin, contact.Recipient()); err != nil {
		return nil, err
	}

	account, err := srv.accountRepo.FindByContact(ctx, contact)
	if errors.Is(err, repository.ErrAccountNotFound) {
		srv.log(ctx).Warn("Login failed", slog.String("reason", "unknown contact"))

		return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account")
	}

	if account.Role != input.ExpectedRole || !account.HasPassword() || !srv.hasher.Check(input.Password, account.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("accountID", account.ID.String()))

		return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
	}

	return srv.openSession(ctx, account, input.Device)
}

// GoogleLogin signs in with a Google ID token, creating the account on first use.
func (srv *accountAuthService) GoogleLogin(ctx context.Context, input *usecase.GoogleLoginInput) (*usecase.AuthSession, error) {
	if srv.googleAuthService == nil {
		return nil, errors.WithStack(domainerrors.ErrOAuthNotConfigured)
	}

	oauthUser, err := srv.googleAuthService.VerifyIDToken(ctx, input.IDToken)
	if err != nil {
		return nil, err
	}

	account, err := srv.accountRepo.FindByFederatedID(ctx, entity.AuthProviderGoogle, oauthUser.Subject)
	if errors.Is(err, repository.ErrAccountNotFound) {
		account, err = srv.createFederatedAccount(ctx, oauthUser)
	}
	if err != nil {
		return nil, err
	}
	if account.Role != entity.RoleUser {
		return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
	}

	return srv.openSession(ctx, account, input.Device)
}

func (srv *accountAuthService) createFederatedAccount(ctx context.Context, oauthUser *service.OAuthUser) (*entity.Account, error) {
	account := &entity.Account{
		FullName:        federatedName(oauthUser),
		AuthProvider:    entity.AuthProviderGoogle,
		ProviderSubject: oauthUser.Subject,
		Role:            entity.RoleUser,
		Active:          true,
		TermsAccepted:   true,
	}

	if oauthUser.EmailVerified && oauthUser.Email != "" {
		_, err := srv.accountRepo.FindByEmail(ctx, oauthUser.Email)
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
			account.Email = entity.NewContact(oauthUser.Email, "").Email
		case err != nil:
			return nil, errors.Wrap(err, "failed to check email availability")
		}
	}

	if err := srv.accountRepo.Create(ctx, account); err != nil {
		if !errors.Is(err, repository.ErrAccountContactTaken) {
			return nil, errors.Wrap(err, "failed to create federated account")
		}

		// A concurrent first sign-in won the insert.
		existing, findErr := srv.accountRepo.FindByFederatedID(ctx, entity.AuthProviderGoogle, oauthUser.Subject)
		if findErr != nil {
			return nil, errors.WithStack(domainerrors.ErrAlreadyRegistered)
		}

		return existing, nil
	}

	srv.log(ctx).Info("Federated account created", slog.String("accountID", account.ID.String()))
	publishAccountEvent(ctx, srv.publisher, srv.log(ctx), entity.EventAccountRegistered, account)

	return account, nil
}

// openSession applies the account gates, records the login and issues a session.
func (srv *accountAuthService) openSession(
	ctx context.Context,
	account *entity.Account,
	device entity.DeviceInfo,
) (*usecase.AuthSession, error) {
	if !account.Active {
		return nil, errors.WithStack(domainerrors.ErrAccountDeactivated)
	}

	profile, err := srv.loadProfile(ctx, account)
	if err != nil {
		return nil, err
	}
	if profile != nil && profile.VerificationStatus == entity.VerificationRejected {
		return nil, errors.WithStack(rejectionError(profile.RejectionReason))
	}

	now := srv.now().UTC()
	account.LastLoginAt = &now
	if err := srv.accountRepo.Update(ctx, account, repository.AccountFieldLastLogin); err != nil {
		return nil, errors.Wrap(err, "failed to record login")
	}

	tokens, err := srv.sessions.issue(ctx, nil, account.ID, account.Role.String(), device)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Account logged in", slog.String("accountID", account.ID.String()), slog.String("role", account.Role.String()))

	return &usecase.AuthSession{
		AuthTokens: *tokens,
		Account:    usecase.NewAccountSummary(account, profile),
	}, nil
}

// Refresh rotates an account refresh token.
func (srv *accountAuthService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.AuthTokens, error) {
	return srv.sessions.rotate(ctx, input.RefreshToken, input.Device, func(ctx context.Context, id uuid.UUID) (string, error) {
		account, err := srv.accountRepo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", errors.WithStack(domainerrors.ErrUnauthorized)
		}
		if err != nil {
			return "", errors.Wrap(err, "failed to load account")
		}
		if !account.Active {
			return "", errors.WithStack(domainerrors.ErrAccountDeactivated)
		}

		return account.Role.String(), nil
	})
}

// Logout revokes one session. It succeeds for unknown or revoked tokens.
func (srv *accountAuthService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	return srv.sessions.revoke(ctx, input.PrincipalID, input.RefreshToken)
}

// LogoutAll revokes every live session of the account.
func (srv *accountAuthService) LogoutAll(ctx context.Context, accountID uuid.UUID) (int64, error) {
	revoked, err := srv.sessions.revokeAll(ctx, accountID)
	if err != nil {
		return 0, err
	}

	srv.log(ctx).Info("All sessions revoked", slog.String("accountID", accountID.String()), slog.Int64("revoked", revoked))

	return revoked, nil
}

// Me returns the summary of the authenticated account.
func (srv *accountAuthService) Me(ctx context.Context, accountID uuid.UUID) (*usecase.AccountSummary, error) {
	return loadAccountSummary(ctx, srv.accountRepo, srv.profileRepo, accountID)
}

func (srv *accountAuthService) loadProfile(ctx context.Context, account *entity.Account) (*entity.ProviderProfile, error) {
	return loadProviderProfile(ctx, srv.profileRepo, account)
}

func loadProviderProfile(
	ctx context.Context,
	profileRepo repository.ProviderProfileRepository,
	account *entity.Account,
) (*entity.ProviderProfile, error) {
	if account.Role != entity.RoleProvider {
		return nil, nil
	}

	profile, err := profileRepo.FindByAccountID(ctx, account.ID)
	if errors.Is(err, repository.ErrProviderProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load provider profile")
	}

	return profile, nil
}

func loadAccountSummary(
	ctx context.Context,
	accountRepo repository.AccountRepository,
	profileRepo repository.ProviderProfileRepository,
	accountID uuid.UUID,
) (*usecase.AccountSummary, error) {
	account, err := accountRepo.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.WithStack(domainerrors.ErrAccountNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account")
	}

	profile, err := loadProviderProfile(ctx, profileRepo, account)
	if err != nil {
		return nil, err
	}

	return usecase.NewAccountSummary(account, profile), nil
}

func rejectionError(reason string) *domainerrors.BaseError {
	if reason == "" {
		return domainerrors.ErrVerificationRejected
	}

	return domainerrors.ErrVerificationRejected.WithMessage("Provider verification was rejected: " + reason)
}

func federatedName(user *service.OAuthUser) string {
	if name := strings.TrimSpace(user.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(user.Email, "@"); ok && len(local) >= 2 {
		return local
	}

	return "Google user"
}
