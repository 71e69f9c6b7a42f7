package service

import (
	"time"

	"marketplace/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType separates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims defines the custom claims for the JWT tokens.
type Claims struct {
	PrincipalID   uuid.UUID            `json:"pid"`
	PrincipalKind entity.PrincipalKind `json:"pkind"`
	Role          string               `json:"role,omitempty"`
	Type          TokenType            `json:"typ"`
	Nonce         string               `json:"nonce,omitempty"` // Refresh tokens only.
	jwt.RegisteredClaims
}

// TokenPair is an issued access and refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService defines the interface for generating and validating JWTs.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// IssuePair signs a fresh access and refresh token for the principal.
	IssuePair(principalID uuid.UUID, kind entity.PrincipalKind, role string) (*TokenPair, error)

	// ParseAccessToken verifies an access token. Expired tokens fail with
	// ErrExpiredToken, everything else with ErrInvalidToken.
	ParseAccessToken(token string) (*Claims, error)

	// ParseRefreshToken verifies a refresh token with the refresh signing key.
	ParseRefreshToken(token string) (*Claims, error)

	// GetTokenExpiresIn returns the configured lifetime of a token type in seconds.
	GetTokenExpiresIn(tokenType TokenType) int64
}
