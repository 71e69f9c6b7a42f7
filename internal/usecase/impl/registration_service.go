package impl

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"marketplace/config"
	deliverycontext "marketplace/internal/delivery/context"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/domain/service"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"
	"marketplace/internal/util"

	"go.uber.org/fx"
)

const defaultUploadFolder = "id-images"

var otpShape = regexp.MustCompile(`^\d{6}$`)

// registrationService implements the RegistrationUsecase interface.
type registrationService struct {
	txManager    repository.TransactionManager
	accountRepo  repository.AccountRepository
	pendingRepo  repository.PendingRegistrationRepository
	hasher       service.PasswordHasher
	otpSender    service.OTPSender
	objectStore  service.ObjectStore
	limiter      service.AttemptLimiter
	publisher    service.EventPublisher
	sessions     *sessionManager
	uploadFolder string
	logger       *slog.Logger
	now          func() time.Time
}

// RegistrationServiceParams holds dependencies for RegistrationService, injected by Fx.
type RegistrationServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	AccountRepo      repository.AccountRepository
	PendingRepo      repository.PendingRegistrationRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	OTPSender        service.OTPSender
	ObjectStore      service.ObjectStore
	Limiter          service.AttemptLimiter
	Publisher        service.EventPublisher
	Config           *config.Config
	Logger           *slog.Logger
}

// NewRegistrationService is the constructor for registrationService.
func NewRegistrationService(params RegistrationServiceParams) usecase.RegistrationUsecase {
	uploadFolder := defaultUploadFolder
	if params.Config.Storage != nil && params.Config.Storage.UploadFolder != "" {
		uploadFolder = params.Config.Storage.UploadFolder
	}

	return &registrationService{
		txManager:    params.TxManager,
		accountRepo:  params.AccountRepo,
		pendingRepo:  params.PendingRepo,
		hasher:       params.Hasher,
		otpSender:    params.OTPSender,
		objectStore:  params.ObjectStore,
		limiter:      params.Limiter,
		publisher:    params.Publisher,
		sessions:     newSessionManager(entity.PrincipalAccount, params.TokenService, params.RefreshTokenRepo, maxActiveSessions(params.Config)),
		uploadFolder: uploadFolder,
		logger:       params.Logger,
		now:          time.Now,
	}
}

func (srv *registrationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RequestOtp starts or restarts a registration. The OTP hash is stored before
// delivery and the row is rolled back when delivery fails.
func (srv *registrationService) RequestOtp(ctx context.Context, input *usecase.RequestOtpInput) (*usecase.RequestOtpOutput, error) {
	contact := entity.NewContact(input.Email, input.Phone)
	if contact.IsEmpty() {
		return nil, domainerrors.ErrInvalidInput.WrapMessage("email or phone is required")
	}
	if input.Role != entity.RoleUser && input.Role != entity.RoleProvider {
		return nil, domainerrors.ErrInvalidInput.WrapMessage("unsupported registration role")
	}
	if err := checkProfile(input.Profile); err != nil {
		return nil, err
	}
	if err := allowAttempt(ctx, srv.limiter, srv.log(ctx), service.LimitScopeOTP, contact.Recipient()); err != nil {
		return nil, err
	}

	if err := srv.ensureContactFree(ctx, contact); err != nil {
		return nil, err
	}

	passwordHash, err := srv.hashOptional(input.Profile.Password)
	if err != nil {
		return nil, err
	}

	otp, err := util.GenerateOTP()
	if err != nil {
		return nil, secretError(err)
	}

	freshHandles, err := srv.uploadAll(ctx, input.IDImages)
	if err != nil {
		return nil, err
	}

	var replacedHandles []string
	row, previous, created, err := srv.pendingRepo.UpsertByContact(ctx, contact, func(row *entity.PendingRegistration) error {
		row.Role = input.Role
		row.ApplyProfile(toPatch(input.Profile))
		if passwordHash != "" && row.PasswordHash == "" {
			row.PasswordHash = passwordHash
		}
		if len(freshHandles) > 0 {
			replacedHandles = row.IDImageRefs
			row.IDImageRefs = freshHandles
		}
		row.ResetOtp(util.Fingerprint(otp), srv.now().Add(entity.OtpTTL))

		return nil
	})
	if err != nil {
		srv.releaseHandles(ctx, freshHandles)
		if errors.Is(err, repository.ErrPendingContactMismatch) {
			return nil, errors.WithStack(domainerrors.ErrContactMismatch)
		}

		return nil, errors.Wrap(err, "failed to store pending registration")
	}

	delivery := service.OTPDelivery{
		Channel:     contact.PreferredChannel(),
		Recipient:   contact.Recipient(),
		Code:        otp,
		DisplayName: row.FullName,
		Purpose:     entity.PurposeRegistration,
	}
	if err := srv.otpSender.Deliver(ctx, delivery); err != nil {
		srv.log(ctx).Warn("Registration OTP delivery failed",
			slog.String("channel", delivery.Channel.String()), slog.Any("error", err))
		srv.rollbackPending(ctx, row, previous, created)
		srv.releaseHandles(ctx, freshHandles)

		return nil, deliveryError(err)
	}

	srv.releaseHandles(ctx, replacedHandles)
	srv.log(ctx).Info("Registration OTP issued",
		slog.String("role", input.Role.String()),
		slog.String("channel", delivery.Channel.String()),
		slog.Bool("created", created))

	return &usecase.RequestOtpOutput{
		Channel:          delivery.Channel,
		ExpiresInSeconds: int(entity.OtpTTL.Seconds()),
	}, nil
}

// VerifyOtp exchanges the registration OTP. A complete row is finalized at
// once, otherwise a verification token defers completion.
func (srv *registrationService) VerifyOtp(ctx context.Context, input *usecase.VerifyOtpInput) (*usecase.VerifyOtpOutput, error) {
	if !otpShape.MatchString(input.Otp) {
		return nil, errors.WithStack(domainerrors.ErrOtpShape)
	}
	contact := entity.NewContact(input.Email, input.Phone)
	if contact.IsEmpty() {
		return nil, domainerrors.ErrInvalidInput.WrapMessage("email or phone is required")
	}
	if err := checkProfile(input.Profile); err != nil {
		return nil, err
	}

	row, err := srv.findPending(ctx, contact)
	if errors.Is(err, domainerrors.ErrPendingRegistrationNotFound) {
		// The row is gone once a concurrent verification finalized it.
		if taken := srv.ensureContactFree(ctx, contact); taken != nil {
			return nil, taken
		}
	}
	if err != nil {
		return nil, err
	}
	if input.Role != "" && row.Role != input.Role {
		return nil, errors.WithStack(domainerrors.ErrPendingRegistrationNotFound)
	}
	if row.Verified {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("verification code already used")
	}

	if row.OtpExpired(srv.now()) {
		srv.destroyPending(ctx, row)

		return nil, errors.WithStack(domainerrors.ErrOtpExpired)
	}
	if !util.FingerprintMatches(input.Otp, row.OtpHash) {
		return nil, errors.WithStack(domainerrors.ErrOtpInvalid)
	}

	row.ApplyProfile(toPatch(input.Profile))
	if row.PasswordHash == "" {
		if row.PasswordHash, err = srv.hashOptional(input.Profile.Password); err != nil {
			return nil, err
		}
	}

	if row.ReadyToFinalize() {
		session, err := srv.finalize(ctx, row, input.Device)
		if err != nil {
			return nil, err
		}

		return &usecase.VerifyOtpOutput{Completed: true, Session: session}, nil
	}

	token, err := util.GenerateOpaqueToken()
	if err != nil {
		return nil, secretError(err)
	}
	expiresAt := srv.now().Add(entity.VerificationTokenTTL)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		pendingRepo := repoFactory.NewPendingRegistrationRepository()
		if err := pendingRepo.Save(ctx, row); err != nil {
			return err
		}

		return pendingRepo.MarkVerified(ctx, row, util.Fingerprint(token), &expiresAt)
	})
	if err != nil {
		if errors.Is(err, repository.ErrPendingRegistrationNotFound) {
			return nil, errors.WithStack(domainerrors.ErrPendingRegistrationNotFound)
		}

		return nil, errors.Wrap(err, "failed to mark pending registration verified")
	}

	return &usecase.VerifyOtpOutput{
		VerificationToken: token,
		Identifier:        row.Contact().Recipient(),
		ExpiresInSeconds:  int(entity.VerificationTokenTTL.Seconds()),
	}, nil
}

// CompleteRegistration finishes a deferred registration with a verification token.
func (srv *registrationService) CompleteRegistration(
	ctx context.Context,
	input *usecase.CompleteRegistrationInput,
) (*usecase.AuthSession, error) {
	if input.VerificationToken == "" {
		return nil, errors.WithStack(domainerrors.ErrInvalidToken)
	}
	if err := checkProfile(input.Profile); err != nil {
		return nil, err
	}

	row, err := srv.pendingRepo.FindByVerificationTokenHash(ctx, util.Fingerprint(input.VerificationToken))
	if err != nil {
		if errors.Is(err, repository.ErrPendingRegistrationNotFound) {
			return nil, errors.WithStack(domainerrors.ErrInvalidToken)
		}

		return nil, errors.Wrap(err, "failed to find pending registration")
	}
	if !row.VerificationTokenValid(srv.now()) {
		return nil, errors.WithStack(domainerrors.ErrInvalidToken)
	}

	supplied := entity.NewContact(input.Email, input.Phone)
	if (supplied.Email != "" && supplied.Email != row.Email) || (supplied.Phone != "" && supplied.Phone != row.Phone) {
		return nil, errors.WithStack(domainerrors.ErrContactMismatch)
	}

	row.ApplyProfile(toPatch(input.Profile))
	if input.Profile.Password != nil && *input.Profile.Password != "" {
		if row.PasswordHash, err = srv.hashOptional(input.Profile.Password); err != nil {
			return nil, err
		}
	}
	if !row.ReadyToFinalize() {
		return nil, errors.WithStack(domainerrors.ErrIncompletePayload)
	}

	_, err = srv.accountRepo.FindByContact(ctx, row.Contact())
	switch {
	case err == nil:
		srv.destroyPending(ctx, row)

		return nil, errors.WithStack(domainerrors.ErrAlreadyRegistered)
	case !errors.Is(err, repository.ErrAccountNotFound):
		return nil, errors.Wrap(err, "failed to check account uniqueness")
	}

	return srv.finalize(ctx, row, input.Device)
}

// finalize creates the account, the provider profile when the flow needs one,
// and destroys the pending row in one transaction, then opens a session.
func (srv *registrationService) finalize(
	ctx context.Context,
	row *entity.PendingRegistration,
	device entity.DeviceInfo,
) (*usecase.AuthSession, error) {
	account := &entity.Account{
		FullName:      row.FullName,
		Email:         row.Email,
		Phone:         row.Phone,
		PasswordHash:  row.PasswordHash,
		AuthProvider:  entity.AuthProviderLocal,
		Role:          row.Role,
		Active:        true,
		TermsAccepted: true,
	}

	var profile *entity.ProviderProfile
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewAccountRepository().Create(ctx, account); err != nil {
			return err
		}

		if row.Role == entity.RoleProvider {
			profile = &entity.ProviderProfile{
				AccountID:          account.ID,
				Occupation:         row.Occupation,
				ReferenceID:        row.ReferenceID,
				IDImageRefs:        row.IDImageRefs,
				VerificationStatus: entity.VerificationPending,
			}
			if err := repoFactory.NewProviderProfileRepository().Create(ctx, profile); err != nil {
				return err
			}
		}

		return repoFactory.NewPendingRegistrationRepository().Clear(ctx, row.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccountContactTaken) {
			srv.log(ctx).Info("Registration lost a contact race", slog.String("role", row.Role.String()))
			srv.destroyPending(ctx, row)

			return nil, errors.WithStack(domainerrors.ErrAlreadyRegistered)
		}

		return nil, errors.Wrap(err, "failed to finalize registration")
	}

	srv.log(ctx).Info("Registration finalized",
		slog.String("accountID", account.ID.String()), slog.String("role", account.Role.String()))
	publishAccountEvent(ctx, srv.publisher, srv.log(ctx), entity.EventAccountRegistered, account)

	tokens, err := srv.sessions.issue(ctx, nil, account.ID, account.Role.String(), device)
	if err != nil {
		return nil, err
	}

	return &usecase.AuthSession{
		AuthTokens: *tokens,
		Account:    usecase.NewAccountSummary(account, profile),
	}, nil
}

func (srv *registrationService) ensureContactFree(ctx context.Context, contact entity.Contact) error {
	_, err := srv.accountRepo.FindByContact(ctx, contact)
	switch {
	case err == nil:
		return errors.WithStack(domainerrors.ErrAlreadyRegistered)
	case errors.Is(err, repository.ErrAccountNotFound):
		return nil
	default:
		return errors.Wrap(err, "failed to check account uniqueness")
	}
}

func (srv *registrationService) findPending(ctx context.Context, contact entity.Contact) (*entity.PendingRegistration, error) {
	row, err := srv.pendingRepo.FindByContact(ctx, contact)
	switch {
	case err == nil:
		return row, nil
	case errors.Is(err, repository.ErrPendingRegistrationNotFound):
		return nil, errors.WithStack(domainerrors.ErrPendingRegistrationNotFound)
	case errors.Is(err, repository.ErrPendingContactMismatch):
		return nil, errors.WithStack(domainerrors.ErrContactMismatch)
	default:
		return nil, errors.Wrap(err, "failed to find pending registration")
	}
}

// destroyPending removes the row and releases its handles, but only while the
// row still owns them. A row already consumed by a concurrent finalization
// has handed its handles to the provider profile.
func (srv *registrationService) destroyPending(ctx context.Context, row *entity.PendingRegistration) {
	current, err := srv.pendingRepo.FindByContact(ctx, row.Contact())
	if err != nil || current.ID != row.ID {
		return
	}

	if err := srv.pendingRepo.Clear(ctx, row.ID); err != nil {
		srv.log(ctx).Error("Failed to destroy pending registration", slog.Any("error", err))

		return
	}
	srv.releaseHandles(ctx, current.IDImageRefs)
}

// rollbackPending undoes an upsert after a failed delivery.
func (srv *registrationService) rollbackPending(
	ctx context.Context,
	row *entity.PendingRegistration,
	previous *entity.PendingRegistration,
	created bool,
) {
	var err error
	if created || previous == nil {
		err = srv.pendingRepo.Clear(ctx, row.ID)
	} else {
		err = srv.pendingRepo.Save(ctx, previous)
	}
	if err != nil {
		srv.log(ctx).Error("Failed to roll back pending registration", slog.Any("error", err))
	}
}

func (srv *registrationService) uploadAll(ctx context.Context, files []service.UploadedFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	handles := make([]string, 0, len(files))
	for _, file := range files {
		handle, err := srv.objectStore.Upload(ctx, srv.uploadFolder, file)
		if err != nil {
			srv.releaseHandles(ctx, handles)

			return nil, errors.Wrap(err, "failed to upload identity image")
		}
		handles = append(handles, handle)
	}

	return handles, nil
}

func (srv *registrationService) releaseHandles(ctx context.Context, handles []string) {
	for _, handle := range handles {
		if err := srv.objectStore.Delete(ctx, handle); err != nil {
			srv.log(ctx).Warn("Failed to release upload handle", slog.String("handle", handle), slog.Any("error", err))
		}
	}
}

func (srv *registrationService) hashOptional(password *string) (string, error) {
	if password == nil || *password == "" {
		return "", nil
	}

	hash, err := srv.hasher.Hash(*password)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}

	return hash, nil
}

func toPatch(profile usecase.ProfileInput) entity.RegistrationPatch {
	return entity.RegistrationPatch{
		FullName:      profile.FullName,
		TermsAccepted: profile.TermsAccepted,
		Occupation:    profile.Occupation,
		ReferenceID:   profile.ReferenceID,
	}
}

func deliveryError(err error) error {
	if errors.Is(err, domainerrors.ErrDeliveryFailed) {
		return err
	}

	return domainerrors.ErrDeliveryFailed.WrapMessage(err.Error())
}

func maxActiveSessions(cfg *config.Config) int {
	if cfg == nil || cfg.Auth == nil {
		return 0
	}

	return cfg.Auth.MaxActiveSessions
}
