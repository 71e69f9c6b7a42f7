// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"
	"log/slog"

	"marketplace/config"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/service"

	"google.golang.org/api/idtoken"
)

// validateFunc matches idtoken.Validate so tests can stand in for Google.
type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// AuthServiceImpl implements service.OAuthAuthService for Google
type AuthServiceImpl struct {
	clientID string
	validate validateFunc
	logger   *slog.Logger
}

// NewAuthService creates a new Google AuthService
func NewAuthService(cfg *config.Config, logger *slog.Logger) service.OAuthAuthService {
	clientID := ""
	if cfg.GoogleOAuth != nil {
		clientID = cfg.GoogleOAuth.ClientID
	}

	return &AuthServiceImpl{
		clientID: clientID,
		validate: idtoken.Validate,
		logger:   logger,
	}
}

// VerifyIDToken checks signature, issuer, audience and expiry through
// Google's published keys, then maps the payload to an OAuthUser.
func (s *AuthServiceImpl) VerifyIDToken(ctx context.Context, idToken string) (*service.OAuthUser, error) {
	if s.clientID == "" {
		return nil, domainerrors.ErrOAuthNotConfigured
	}

	payload, err := s.validate(ctx, idToken, s.clientID)
	if err != nil {
		s.logger.WarnContext(ctx, "Google ID token rejected", slog.Any("error", err))

		return nil, domainerrors.ErrOAuthTokenInvalid.WrapMessage(err.Error())
	}
	if payload.Subject == "" {
		return nil, domainerrors.ErrOAuthTokenInvalid.WrapMessage("missing subject")
	}

	user := &service.OAuthUser{
		Subject:       payload.Subject,
		Provider:      entity.AuthProviderGoogle,
		Email:         claimString(payload.Claims, "email"),
		Name:          claimString(payload.Claims, "name"),
		AvatarURL:     claimString(payload.Claims, "picture"),
		EmailVerified: claimBool(payload.Claims, "email_verified"),
	}

	s.logger.DebugContext(ctx, "Google ID token verified", slog.String("subject", user.Subject))

	return user, nil
}

// GetProvider returns the OAuth provider type
func (s *AuthServiceImpl) GetProvider() entity.AuthProvider {
	return entity.AuthProviderGoogle
}

func claimString(claims map[string]any, key string) string {
	value, _ := claims[key].(string)

	return value
}

// claimBool accepts both JSON booleans and the "true" strings some tokens carry.
func claimBool(claims map[string]any, key string) bool {
	switch value := claims[key].(type) {
	case bool:
		return value
	case string:
		return value == "true"
	default:
		return false
	}
}
