// Package context carries request-scoped values between the delivery layer
// and the use cases: request ID, logger and authenticated principal.
package context

import (
	"context"
	"log/slog"

	"marketplace/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// KeyRequestID is the key for storing request ID in context.
	KeyRequestID ContextKey = "request_id"

	// KeyLogger is the key for storing request-scoped logger in context.
	KeyLogger ContextKey = "logger"

	// KeyPrincipal is the echo.Context key of the authenticated principal.
	KeyPrincipal ContextKey = "principal"

	// HeaderXRequestID is the HTTP header name for request ID.
	HeaderXRequestID = "X-Request-Id"
)

// Principal is the identity attached by the auth middleware.
type Principal struct {
	ID   uuid.UUID
	Kind entity.PrincipalKind
	Role string

	// Administrator is loaded for administrator principals so capability
	// checks do not hit the store twice.
	Administrator *entity.Administrator
}

// IsAccount reports whether the principal is an end-user account.
func (p *Principal) IsAccount() bool {
	return p != nil && p.Kind == entity.PrincipalAccount
}

// IsAdministrator reports whether the principal is an administrator.
func (p *Principal) IsAdministrator() bool {
	return p != nil && p.Kind == entity.PrincipalAdministrator && p.Administrator != nil
}

// GetRequestID extracts the request ID from echo.Context.
// If not found, generates a new UUID.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(string(KeyRequestID)).(string); ok && id != "" {
		return id
	}

	return uuid.New().String()
}

// SetRequestID sets the request ID in echo.Context.
func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(KeyRequestID), requestID)
}

// GetRequestIDFromContext returns the request ID, or "" outside a request.
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(KeyRequestID).(string); ok {
		return id
	}

	return ""
}

// WithRequestID returns a new context with the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// GetLogger extracts the request-scoped logger, or nil.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(KeyLogger).(*slog.Logger); ok {
		return logger
	}

	return nil
}

// GetLoggerOrDefault extracts the request-scoped logger from context.Context.
// If not found, returns the provided fallback logger.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := GetLogger(ctx); logger != nil {
		return logger
	}

	return fallback
}

// WithLogger returns a new context with the logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}

// SetPrincipal stores the authenticated principal on the echo.Context.
func SetPrincipal(c echo.Context, principal *Principal) {
	c.Set(string(KeyPrincipal), principal)
}

// GetPrincipal returns the authenticated principal, if any.
func GetPrincipal(c echo.Context) (*Principal, bool) {
	principal, ok := c.Get(string(KeyPrincipal)).(*Principal)

	return principal, ok && principal != nil
}
