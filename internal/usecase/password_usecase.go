package usecase

import (
	"context"

	"github.com/google/uuid"
)

// ResetRequestInput identifies the account asking for a reset code.
type ResetRequestInput struct {
	Email string
	Phone string
}

// VerifyResetInput exchanges a reset OTP for a reset token.
type VerifyResetInput struct {
	Email string
	Phone string
	Otp   string
}

// ApplyResetInput sets a new password with a reset token.
type ApplyResetInput struct {
	ResetToken  string
	NewPassword string
}

// ChangePasswordInput is an authenticated password change.
type ChangePasswordInput struct {
	AccountID       uuid.UUID
	CurrentPassword string
	NewPassword     string
}

// VerifyResetOutput carries the one-shot reset token.
type VerifyResetOutput struct {
	ResetToken       string `json:"resetToken"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// PasswordUsecase drives password recovery and password changes for accounts.
type PasswordUsecase interface {
	RequestReset(ctx context.Context, input *ResetRequestInput) error
	VerifyReset(ctx context.Context, input *VerifyResetInput) (*VerifyResetOutput, error)
	ApplyReset(ctx context.Context, input *ApplyResetInput) error
	ChangePassword(ctx context.Context, input *ChangePasswordInput) error
}
