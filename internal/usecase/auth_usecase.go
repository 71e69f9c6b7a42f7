package usecase

import (
	"context"
	"time"

	"marketplace/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenTypeBearer is the only token type handed to clients.
const TokenTypeBearer = "Bearer"

// --- Input DTOs ---

// AccountLoginInput defines the data required for an account to log in.
type AccountLoginInput struct {
	Email        string
	Phone        string
	Password     string
	ExpectedRole entity.Role
	Device       entity.DeviceInfo
}

// GoogleLoginInput carries a Google ID token obtained by the client.
type GoogleLoginInput struct {
	IDToken string
	Device  entity.DeviceInfo
}

// AdminLoginInput defines the data required for an administrator to log in.
type AdminLoginInput struct {
	Email    string
	Password string
	Device   entity.DeviceInfo
}

// RefreshInput carries the raw refresh token to rotate.
type RefreshInput struct {
	RefreshToken string
	Device       entity.DeviceInfo
}

// LogoutInput carries the raw refresh token to revoke. Only a record owned
// by the authenticated principal is touched.
type LogoutInput struct {
	PrincipalID  uuid.UUID
	RefreshToken string
}

// --- Output DTOs ---

// AuthTokens is an issued access and refresh pair.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// AuthSession is returned by every operation that signs a principal in.
type AuthSession struct {
	AuthTokens
	Account       *AccountSummary       `json:"account,omitempty"`
	Administrator *AdministratorSummary `json:"administrator,omitempty"`
}

// ProviderProfileSummary is the public view of a provider's role profile.
type ProviderProfileSummary struct {
	Occupation         string                    `json:"occupation,omitempty"`
	ReferenceID        string                    `json:"referenceId,omitempty"`
	IDImageRefs        []string                  `json:"idImageRefs,omitempty"`
	VerificationStatus entity.VerificationStatus `json:"verificationStatus"`
	RejectionReason    string                    `json:"rejectionReason,omitempty"`
}

// AccountSummary is the public view of an Account. Secrets never appear here.
type AccountSummary struct {
	ID              uuid.UUID               `json:"id"`
	FullName        string                  `json:"fullName"`
	Email           string                  `json:"email,omitempty"`
	Phone           string                  `json:"phone,omitempty"`
	Role            entity.Role             `json:"role"`
	AuthProvider    entity.AuthProvider     `json:"authProvider"`
	Active          bool                    `json:"active"`
	ProfileImageRef string                  `json:"profileImageRef,omitempty"`
	Provider        *ProviderProfileSummary `json:"provider,omitempty"`
	LastLoginAt     *time.Time              `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
}

// NewAccountSummary maps an account and its optional provider profile.
func NewAccountSummary(account *entity.Account, profile *entity.ProviderProfile) *AccountSummary {
	summary := &AccountSummary{
		ID:              account.ID,
		FullName:        account.FullName,
		Email:           account.Email,
		Phone:           account.Phone,
		Role:            account.Role,
		AuthProvider:    account.AuthProvider,
		Active:          account.Active,
		ProfileImageRef: account.ProfileImageRef,
		LastLoginAt:     account.LastLoginAt,
		CreatedAt:       account.CreatedAt,
	}
	if profile != nil {
		summary.Provider = &ProviderProfileSummary{
			Occupation:         profile.Occupation,
			ReferenceID:        profile.ReferenceID,
			IDImageRefs:        profile.IDImageRefs,
			VerificationStatus: profile.VerificationStatus,
			RejectionReason:    profile.RejectionReason,
		}
	}

	return summary
}

// AccountAuthUsecase is the authentication gateway for Account principals.
type AccountAuthUsecase interface {
	Login(ctx context.Context, input *AccountLoginInput) (*AuthSession, error)
	GoogleLogin(ctx context.Context, input *GoogleLoginInput) (*AuthSession, error)
	Refresh(ctx context.Context, input *RefreshInput) (*AuthTokens, error)
	Logout(ctx context.Context, input *LogoutInput) error
	LogoutAll(ctx context.Context, accountID uuid.UUID) (int64, error)
	Me(ctx context.Context, accountID uuid.UUID) (*AccountSummary, error)
}

// AdminAuthUsecase is the authentication gateway for Administrator principals.
type AdminAuthUsecase interface {
	Login(ctx context.Context, input *AdminLoginInput) (*AuthSession, error)
	Refresh(ctx context.Context, input *RefreshInput) (*AuthTokens, error)
	Logout(ctx context.Context, input *LogoutInput) error
	LogoutAll(ctx context.Context, adminID uuid.UUID) (int64, error)
	Me(ctx context.Context, adminID uuid.UUID) (*AdministratorSummary, error)
}
