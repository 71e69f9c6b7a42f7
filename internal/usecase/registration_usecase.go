// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"marketplace/internal/domain/entity"
	"marketplace/internal/domain/service"
)

// --- Input DTOs ---

// ProfileInput carries the optional profile fields accepted at every registration step.
// Nil pointers leave the pending registration untouched.
type ProfileInput struct {
	FullName      *string
	Password      *string
	TermsAccepted *bool
	Occupation    *string
	ReferenceID   *string
}

// RequestOtpInput starts or restarts a registration for a contact.
type RequestOtpInput struct {
	Role     entity.Role // user or provider
	Email    string
	Phone    string
	Profile  ProfileInput
	IDImages []service.UploadedFile // Provider ID images, uploaded before the row is written.
}

// VerifyOtpInput exchanges a registration OTP.
type VerifyOtpInput struct {
	Role    entity.Role
	Email   string
	Phone   string
	Otp     string
	Profile ProfileInput
	Device  entity.DeviceInfo
}

// CompleteRegistrationInput finishes a deferred registration.
type CompleteRegistrationInput struct {
	VerificationToken string
	Email             string
	Phone             string
	Profile           ProfileInput
	Device            entity.DeviceInfo
}

// --- Output DTOs ---

// RequestOtpOutput tells the client where the code went and for how long it is valid.
type RequestOtpOutput struct {
	Channel          entity.Channel `json:"channel"`
	ExpiresInSeconds int            `json:"expiresInSeconds"`
}

// VerifyOtpOutput is either a finished registration or a deferred-completion token.
type VerifyOtpOutput struct {
	Completed         bool         `json:"completed"`
	Session           *AuthSession `json:"session,omitempty"`
	VerificationToken string       `json:"verificationToken,omitempty"`
	Identifier        string       `json:"identifier,omitempty"`
	ExpiresInSeconds  int          `json:"expiresInSeconds,omitempty"`
}

// RegistrationUsecase drives the OTP-gated join flow for end-users and providers.
type RegistrationUsecase interface {
	RequestOtp(ctx context.Context, input *RequestOtpInput) (*RequestOtpOutput, error)
	VerifyOtp(ctx context.Context, input *VerifyOtpInput) (*VerifyOtpOutput, error)
	CompleteRegistration(ctx context.Context, input *CompleteRegistrationInput) (*AuthSession, error)
}
