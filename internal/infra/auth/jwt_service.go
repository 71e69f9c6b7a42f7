// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"marketplace/config"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/service"
	"marketplace/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  []byte        // Secret key for signing access tokens.
	refreshSecret []byte        // Secret key for signing refresh tokens.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
	now           func() time.Time
}

// NewJWTService is the constructor for jwtService.
// The refresh key falls back to the access key when it is not configured.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" {
		return nil, errors.New("jwt access secret must be provided")
	}
	refreshSecret := cfg.SecretKey.Refresh
	if refreshSecret == "" {
		refreshSecret = cfg.SecretKey.Access
	}

	accessTTL, err := util.ParseDuration(cfg.Token.AccessExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "token.accessExpiry")
	}
	refreshTTL, err := util.ParseDuration(cfg.Token.RefreshExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "token.refreshExpiry")
	}

	return &jwtService{
		accessSecret:  []byte(cfg.SecretKey.Access),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// IssuePair creates a new access token and refresh token for a principal.
func (s *jwtService) IssuePair(principalID uuid.UUID, kind entity.PrincipalKind, role string) (*service.TokenPair, error) {
	now := s.now()

	accessToken, err := s.sign(&service.Claims{
		PrincipalID:   principalID,
		PrincipalKind: kind,
		Role:          role,
		Type:          service.TokenTypeAccess,
	}, now, s.accessTTL, s.accessSecret)
	if err != nil {
		return nil, err
	}

	// The nonce keeps two refresh tokens issued in the same second distinct,
	// which the unique fingerprint index relies on.
	nonce, err := util.RandomHex(util.OpaqueTokenBytes)
	if err != nil {
		return nil, domainerrors.ErrWeakRandom.WrapMessage(err.Error())
	}
	refreshExpiresAt := now.Add(s.refreshTTL)
	refreshToken, err := s.sign(&service.Claims{
		PrincipalID:   principalID,
		PrincipalKind: kind,
		Type:          service.TokenTypeRefresh,
		Nonce:         nonce,
	}, now, s.refreshTTL, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &service.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// ParseAccessToken validates an access token against the access key.
func (s *jwtService) ParseAccessToken(token string) (*service.Claims, error) {
	return s.parse(token, s.accessSecret, service.TokenTypeAccess)
}

// ParseRefreshToken validates a refresh token against the refresh key.
func (s *jwtService) ParseRefreshToken(token string) (*service.Claims, error) {
	return s.parse(token, s.refreshSecret, service.TokenTypeRefresh)
}

// GetTokenExpiresIn returns the configured lifetime in seconds.
func (s *jwtService) GetTokenExpiresIn(tokenType service.TokenType) int64 {
	if tokenType == service.TokenTypeRefresh {
		return int64(s.refreshTTL / time.Second)
	}

	return int64(s.accessTTL / time.Second)
}

func (s *jwtService) sign(claims *service.Claims, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.PrincipalID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

func (s *jwtService) parse(tokenString string, secret []byte, expected service.TokenType) (*service.Claims, error) {
	claims := &service.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.ErrExpiredToken
		}

		return nil, domainerrors.ErrInvalidToken.WrapMessage(err.Error())
	}

	if claims.Type != expected || claims.PrincipalID == uuid.Nil || !claims.PrincipalKind.IsValid() {
		return nil, domainerrors.ErrInvalidToken
	}

	return claims, nil
}
