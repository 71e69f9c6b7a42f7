package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "marketplace/internal/delivery/context"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/domain/service"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"
	"marketplace/internal/util"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// passwordService implements the PasswordUsecase interface.
type passwordService struct {
	accountRepo repository.AccountRepository
	hasher      service.PasswordHasher
	otpSender   service.OTPSender
	limiter     service.AttemptLimiter
	publisher   service.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// PasswordServiceParams holds dependencies for PasswordService, injected by Fx.
type PasswordServiceParams struct {
	fx.In

	AccountRepo repository.AccountRepository
	Hasher      service.PasswordHasher
	OTPSender   service.OTPSender
	Limiter     service.AttemptLimiter
	Publisher   service.EventPublisher
	Logger      *slog.Logger
}

// NewPasswordService is the constructor for passwordService.
func NewPasswordService(params PasswordServiceParams) usecase.PasswordUsecase {
	return &passwordService{
		accountRepo: params.AccountRepo,
		hasher:      params.Hasher,
		otpSender:   params.OTPSender,
		limiter:     params.Limiter,
		publisher:   params.Publisher,
		logger:      params.Logger,
		now:         time.Now,
	}
}

func (srv *passwordService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RequestReset stores a reset OTP on the account and delivers it. Unknown
// contacts succeed silently so the response does not reveal existence.
func (srv *passwordService) RequestReset(ctx context.Context, input *usecase.ResetRequestInput) error {
	contact := entity.NewContact(input.Email, input.Phone)
	if contact.IsEmpty() {
		return domainerrors.ErrInvalidInput.WrapMessage("email or phone is required")
	}
	if err := allowAttempt(ctx, srv.limiter, srv.log(ctx), service.LimitScopeReset, contact.Recipient()); err != nil {
		return err
	}

	account, err := srv.accountRepo.FindByContact(ctx, contact)
	if errors.Is(err, repository.ErrAccountNotFound) {
		srv.log(ctx).Info("Password reset requested for unknown contact")

		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to find account")
	}
	if !account.Active {
		return errors.WithStack(domainerrors.ErrAccountDeactivated)
	}
	if !account.HasPassword() {
		srv.log(ctx).Info("Password reset requested for federated account", slog.String("accountID", account.ID.String()))

		return nil
	}

	otp, err := util.GenerateOTP()
	if err != nil {
		return secretError(err)
	}

	expiresAt := srv.now().Add(entity.OtpTTL)
	account.ResetOtpHash = util.Fingerprint(otp)
	account.ResetOtpExpiresAt = &expiresAt
	if err := srv.accountRepo.Update(ctx, account, repository.AccountFieldResetOtp); err != nil {
		return errors.Wrap(err, "failed to store reset code")
	}

	// The code goes to whichever supplied contact the account actually holds.
	delivery := service.OTPDelivery{
		Channel:     entity.ChannelSMS,
		Recipient:   account.Phone,
		Code:        otp,
		DisplayName: account.FullName,
		Purpose:     entity.PurposePasswordReset,
	}
	if contact.Email != "" && contact.Email == account.Email {
		delivery.Channel = entity.ChannelEmail
		delivery.Recipient = account.Email
	}

	if err := srv.otpSender.Deliver(ctx, delivery); err != nil {
		srv.log(ctx).Warn("Reset OTP delivery failed", slog.String("channel", delivery.Channel.String()), slog.Any("error", err))

		account.ClearResetOtp()
		if updateErr := srv.accountRepo.Update(ctx, account, repository.AccountFieldResetOtp); updateErr != nil {
			srv.log(ctx).Error("Failed to clear reset code", slog.Any("error", updateErr))
		}

		return deliveryError(err)
	}

	srv.log(ctx).Info("Password reset OTP issued", slog.String("accountID", account.ID.String()))

	return nil
}

// VerifyReset exchanges a reset OTP for a one-shot reset token.
func (srv *passwordService) VerifyReset(ctx context.Context, input *usecase.VerifyResetInput) (*usecase.VerifyResetOutput, error) {
	if !otpShape.MatchString(input.Otp) {
		return nil, errors.WithStack(domainerrors.ErrOtpShape)
	}
	contact := entity.NewContact(input.Email, input.Phone)
	if contact.IsEmpty() {
		return nil, domainerrors.ErrInvalidInput.WrapMessage("email or phone is required")
	}

	account, err := srv.accountRepo.FindByContact(ctx, contact)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.WithStack(domainerrors.ErrOtpInvalid)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account")
	}
	if account.ResetOtpHash == "" || account.ResetOtpExpiresAt == nil {
		return nil, errors.WithStack(domainerrors.ErrOtpInvalid)
	}

	if !srv.now().Before(*account.ResetOtpExpiresAt) {
		account.ClearResetOtp()
		if err := srv.accountRepo.Update(ctx, account, repository.AccountFieldResetOtp); err != nil {
			return nil, errors.Wrap(err, "failed to clear expired reset code")
		}

		return nil, errors.WithStack(domainerrors.ErrOtpExpired)
	}
	if !util.FingerprintMatches(input.Otp, account.ResetOtpHash) {
		return nil, errors.WithStack(domainerrors.ErrOtpInvalid)
	}

	token, err := util.GenerateOpaqueToken()
	if err != nil {
		return nil, secretError(err)
	}

	expiresAt := srv.now().Add(entity.ResetTokenTTL)
	account.ClearResetOtp()
	account.ResetTokenHash = util.Fingerprint(token)
	account.ResetTokenExpiresAt = &expiresAt
	if err := srv.accountRepo.Update(ctx, account, repository.AccountFieldResetOtp, repository.AccountFieldResetToken); err != nil {
		return nil, errors.Wrap(err, "failed to store reset token")
	}

	return &usecase.VerifyResetOutput{
		ResetToken:       token,
		ExpiresInSeconds: int(entity.ResetTokenTTL.Seconds()),
	}, nil
}

// ApplyReset sets a new password with a reset token. Live sessions are kept.
func (srv *passwordService) ApplyReset(ctx context.Context, input *usecase.ApplyResetInput) error {
	if err := checkPassword(input.NewPassword, entity.MinAccountPasswordLength); err != nil {
		return err
	}
	if input.ResetToken == "" {
		return errors.WithStack(domainerrors.ErrInvalidToken)
	}

	account, err := srv.accountRepo.FindByResetTokenHash(ctx, util.Fingerprint(input.ResetToken))
	if errors.Is(err, repository.ErrAccountNotFound) {
		return errors.WithStack(domainerrors.ErrInvalidToken)
	}
	if err != nil {
		return errors.Wrap(err, "failed to find account by reset token")
	}
	if account.ResetTokenExpiresAt == nil || !srv.now().Before(*account.ResetTokenExpiresAt) {
		return errors.WithStack(domainerrors.ErrInvalidToken)
	}

	hash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	account.PasswordHash = hash
	account.ClearResetToken()
	account.ClearResetOtp()
	if err := srv.accountRepo.Update(ctx, account,
		repository.AccountFieldPassword, repository.AccountFieldResetToken, repository.AccountFieldResetOtp); err != nil {
		return errors.Wrap(err, "failed to update password")
	}

	srv.log(ctx).Info("Password reset applied", slog.String("accountID", account.ID.String()))
	publishAccountEvent(ctx, srv.publisher, srv.log(ctx), entity.EventAccountPasswordReset, account)

	return nil
}

// ChangePassword replaces the password of an authenticated local account.
func (srv *passwordService) ChangePassword(ctx context.Context, input *usecase.ChangePasswordInput) error {
	if err := checkPassword(input.NewPassword, entity.MinAccountPasswordLength); err != nil {
		return err
	}

	account, err := srv.loadAccount(ctx, input.AccountID)
	if err != nil {
		return err
	}
	if !account.HasPassword() {
		return errors.WithStack(domainerrors.ErrPasswordNotSet)
	}
	if !srv.hasher.Check(input.CurrentPassword, account.PasswordHash) {
		return errors.WithStack(domainerrors.ErrPasswordMismatch)
	}
	if srv.hasher.Check(input.NewPassword, account.PasswordHash) {
		return errors.WithStack(domainerrors.ErrPasswordUnchanged)
	}

	hash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	account.PasswordHash = hash
	if err := srv.accountRepo.Update(ctx, account, repository.AccountFieldPassword); err != nil {
		return errors.Wrap(err, "failed to update password")
	}

	publishAccountEvent(ctx, srv.publisher, srv.log(ctx), entity.EventAccountPasswordChanged, account)

	return nil
}

func (srv *passwordService) loadAccount(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.WithStack(domainerrors.ErrAccountNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account")
	}

	return account, nil
}
