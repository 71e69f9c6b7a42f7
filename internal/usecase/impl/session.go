// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/domain/service"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"
	"marketplace/internal/util"

	"github.com/google/uuid"
)

// principalLoader re-reads a principal during refresh and returns the role
// to embed in the new access token. It fails when the principal is gone or inactive.
type principalLoader func(ctx context.Context, id uuid.UUID) (string, error)

// sessionManager issues, rotates and revokes refresh-token backed sessions
// for one principal kind.
type sessionManager struct {
	kind              entity.PrincipalKind
	tokenService      service.TokenService
	refreshTokenRepo  repository.RefreshTokenRepository
	maxActiveSessions int
	now               func() time.Time
}

func newSessionManager(
	kind entity.PrincipalKind,
	tokenService service.TokenService,
	refreshTokenRepo repository.RefreshTokenRepository,
	maxActiveSessions int,
) *sessionManager {
	return &sessionManager{
		kind:              kind,
		tokenService:      tokenService,
		refreshTokenRepo:  refreshTokenRepo,
		maxActiveSessions: maxActiveSessions,
		now:               time.Now,
	}
}

// issue signs a pair and persists the refresh fingerprint with device info.
// The repository argument lets callers bind the insert to a transaction.
func (m *sessionManager) issue(
	ctx context.Context,
	refreshRepo repository.RefreshTokenRepository,
	principalID uuid.UUID,
	role string,
	device entity.DeviceInfo,
) (*usecase.AuthTokens, error) {
	if refreshRepo == nil {
		refreshRepo = m.refreshTokenRepo
	}

	if m.maxActiveSessions > 0 {
		active, err := refreshRepo.CountActive(ctx, m.kind, principalID, m.now())
		if err != nil {
			return nil, errors.Wrap(err, "failed to count active sessions")
		}
		if active >= int64(m.maxActiveSessions) {
			return nil, errors.WithStack(domainerrors.ErrSessionLimitExceeded)
		}
	}

	pair, err := m.tokenService.IssuePair(principalID, m.kind, role)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue token pair")
	}

	record := &entity.RefreshToken{
		OwnerKind:  m.kind,
		OwnerID:    principalID,
		TokenHash:  util.Fingerprint(pair.RefreshToken),
		ExpiresAt:  pair.RefreshExpiresAt,
		DeviceInfo: device,
	}
	if err := refreshRepo.CreateRefreshToken(ctx, record); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenConflict) {
			return nil, domainerrors.ErrConflict.WrapMessage("refresh token collision")
		}

		return nil, errors.Wrap(err, "failed to persist refresh token")
	}

	return m.tokens(pair), nil
}

// rotate exchanges a raw refresh token for a new pair. The consumed record is
// revoked and its successor inserted in one unit, so replaying a token fails.
func (m *sessionManager) rotate(
	ctx context.Context,
	rawToken string,
	device entity.DeviceInfo,
	load principalLoader,
) (*usecase.AuthTokens, error) {
	claims, err := m.tokenService.ParseRefreshToken(rawToken)
	if err != nil {
		return nil, err
	}
	if claims.PrincipalKind != m.kind {
		return nil, errors.WithStack(domainerrors.ErrInvalidToken)
	}

	record, err := m.refreshTokenRepo.FindByOwnerAndHash(ctx, m.kind, claims.PrincipalID, util.Fingerprint(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, errSessionRevoked()
		}

		return nil, errors.Wrap(err, "failed to find refresh token")
	}
	if !record.IsValid(m.now()) {
		return nil, errSessionRevoked()
	}

	role, err := load(ctx, claims.PrincipalID)
	if err != nil {
		return nil, err
	}

	pair, err := m.tokenService.IssuePair(claims.PrincipalID, m.kind, role)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue token pair")
	}

	next := &entity.RefreshToken{
		OwnerKind:  m.kind,
		OwnerID:    claims.PrincipalID,
		TokenHash:  util.Fingerprint(pair.RefreshToken),
		ExpiresAt:  pair.RefreshExpiresAt,
		DeviceInfo: device,
	}
	if device == (entity.DeviceInfo{}) {
		next.DeviceInfo = record.DeviceInfo
	}

	if err := m.refreshTokenRepo.Rotate(ctx, record, next); err != nil {
		switch {
		case errors.Is(err, repository.ErrRefreshTokenNotFound):
			return nil, errSessionRevoked()
		case errors.Is(err, repository.ErrRefreshTokenConflict):
			return nil, domainerrors.ErrConflict.WrapMessage("refresh token collision")
		default:
			return nil, errors.Wrap(err, "failed to rotate refresh token")
		}
	}

	return m.tokens(pair), nil
}

// revoke drops one session owned by the principal. Unknown, foreign and
// already revoked tokens are ignored.
func (m *sessionManager) revoke(ctx context.Context, principalID uuid.UUID, rawToken string) error {
	if rawToken == "" {
		return nil
	}

	tokenHash := util.Fingerprint(rawToken)
	record, err := m.refreshTokenRepo.FindByOwnerAndHash(ctx, m.kind, principalID, tokenHash)
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to find refresh token")
	}
	if record.Revoked {
		return nil
	}

	if err := m.refreshTokenRepo.RevokeByHash(ctx, tokenHash); err != nil {
		return errors.Wrap(err, "failed to revoke refresh token")
	}

	return nil
}

func (m *sessionManager) revokeAll(ctx context.Context, principalID uuid.UUID) (int64, error) {
	revoked, err := m.refreshTokenRepo.RevokeAllFor(ctx, m.kind, principalID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to revoke sessions")
	}

	return revoked, nil
}

func (m *sessionManager) tokens(pair *service.TokenPair) *usecase.AuthTokens {
	return &usecase.AuthTokens{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    m.tokenService.GetTokenExpiresIn(service.TokenTypeAccess),
		TokenType:    usecase.TokenTypeBearer,
	}
}

func errSessionRevoked() error {
	return errors.WithStack(domainerrors.ErrUnauthorized.WithMessage("Refresh token is no longer valid"))
}

// allowAttempt consults the limiter. Limiter outages are logged and let the attempt through.
func allowAttempt(
	ctx context.Context,
	limiter service.AttemptLimiter,
	logger *slog.Logger,
	scope service.LimitScope,
	key string,
) error {
	if limiter == nil || key == "" {
		return nil
	}

	allowed, err := limiter.Allow(ctx, scope, key)
	if err != nil {
		logger.Warn("Attempt limiter unavailable", slog.String("scope", string(scope)), slog.Any("error", err))

		return nil
	}
	if !allowed {
		return errors.WithStack(domainerrors.ErrTooManyRequests)
	}

	return nil
}

// secretError maps a random source failure onto the WeakRandom kind.
func secretError(err error) error {
	if errors.Is(err, util.ErrWeakRandom) {
		return domainerrors.ErrWeakRandom.WrapMessage(err.Error())
	}

	return errors.WithStack(err)
}
