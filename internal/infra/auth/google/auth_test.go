package google

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"marketplace/config"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func newTestAuthService(clientID string, validate validateFunc) *AuthServiceImpl {
	cfg := &config.Config{GoogleOAuth: &config.GoogleOAuthConfig{ClientID: clientID}}
	svc := NewAuthService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))).(*AuthServiceImpl)
	svc.validate = validate

	return svc
}

func TestAuthService_VerifyIDToken(t *testing.T) {
	var gotAudience string
	svc := newTestAuthService("test_client_id", func(_ context.Context, _ string, audience string) (*idtoken.Payload, error) {
		gotAudience = audience

		return &idtoken.Payload{
			Subject: "google-sub-123",
			Claims: map[string]any{
				"email":          "test@example.com",
				"name":           "Test User",
				"picture":        "https://example.com/a.png",
				"email_verified": true,
			},
		}, nil
	})

	user, err := svc.VerifyIDToken(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "test_client_id", gotAudience)
	assert.Equal(t, "google-sub-123", user.Subject)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "Test User", user.Name)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, entity.AuthProviderGoogle, user.Provider)
}

func TestAuthService_RejectedToken(t *testing.T) {
	svc := newTestAuthService("test_client_id", func(context.Context, string, string) (*idtoken.Payload, error) {
		return nil, errors.New("idtoken: audience provided does not match aud claim in the JWT")
	})

	user, err := svc.VerifyIDToken(context.Background(), "token")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, domainerrors.ErrOAuthTokenInvalid)
}

func TestAuthService_NotConfigured(t *testing.T) {
	svc := newTestAuthService("", nil)

	_, err := svc.VerifyIDToken(context.Background(), "token")
	assert.ErrorIs(t, err, domainerrors.ErrOAuthNotConfigured)
}

func TestClaimBool(t *testing.T) {
	assert.True(t, claimBool(map[string]any{"v": true}, "v"))
	assert.True(t, claimBool(map[string]any{"v": "true"}, "v"))
	assert.False(t, claimBool(map[string]any{"v": "false"}, "v"))
	assert.False(t, claimBool(map[string]any{}, "v"))
}
