package service

import "context"

// LimitScope names a rate-limited operation.
type LimitScope string

const (
	LimitScopeOTP   LimitScope = "otp"
	LimitScopeLogin LimitScope = "login"
	LimitScopeReset LimitScope = "reset"
)

// AttemptLimiter counts attempts per scope and key within a fixed window.
type AttemptLimiter interface {
	// Allow records an attempt and reports whether it is within the limit.
	Allow(ctx context.Context, scope LimitScope, key string) (bool, error)
}
