// Package ratelimit provides fixed-window attempt limiters.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"marketplace/config"
	"marketplace/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const keyPrefix = "marketplace:ratelimit:"

// redisLimiter counts attempts with INCR and starts the window with EXPIRE on
// the first hit.
type redisLimiter struct {
	client  redis.UniversalClient
	windows map[service.LimitScope]config.LimitWindow
}

// NewRedisLimiter builds a limiter over an existing client.
func NewRedisLimiter(client redis.UniversalClient, cfg *config.RateLimitConfig) service.AttemptLimiter {
	return &redisLimiter{
		client: client,
		windows: map[service.LimitScope]config.LimitWindow{
			service.LimitScopeOTP:   cfg.OTP,
			service.LimitScopeLogin: cfg.Login,
			service.LimitScopeReset: cfg.Reset,
		},
	}
}

// Allow records the attempt and reports whether it is within the window.
// Scopes without a positive max or window are unlimited.
func (l *redisLimiter) Allow(ctx context.Context, scope service.LimitScope, key string) (bool, error) {
	window, ok := l.windows[scope]
	if !ok || window.Max <= 0 || window.Window <= 0 {
		return true, nil
	}

	redisKey := keyPrefix + string(scope) + ":" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, errors.Wrap(err, "rate limit incr failed")
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window.Window).Err(); err != nil {
			return false, errors.Wrap(err, "rate limit expire failed")
		}
	}

	return count <= int64(window.Max), nil
}

// noopLimiter allows every attempt.
type noopLimiter struct{}

// NewNoopLimiter returns a limiter that never limits.
func NewNoopLimiter() service.AttemptLimiter {
	return noopLimiter{}
}

func (noopLimiter) Allow(context.Context, service.LimitScope, string) (bool, error) {
	return true, nil
}

// Params holds dependencies for the limiter, injected by Fx
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewAttemptLimiter connects to Redis when rate limiting is enabled and
// configured, otherwise returns the no-op limiter.
func NewAttemptLimiter(params Params) (service.AttemptLimiter, error) {
	cfg := params.Config
	if cfg.RateLimit == nil || !cfg.RateLimit.Enabled {
		params.Logger.Info("Rate limiting disabled")

		return NewNoopLimiter(), nil
	}
	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		return nil, errors.New("rateLimit.enabled requires redis.addr")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	params.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := client.Ping(pingCtx).Err(); err != nil {
				return errors.Wrap(err, "redis ping failed")
			}
			params.Logger.Info("Redis rate limiter connected", slog.String("addr", cfg.Redis.Addr))

			return nil
		},
		OnStop: func(context.Context) error {
			return errors.WithStack(client.Close())
		},
	})

	return NewRedisLimiter(client, cfg.RateLimit), nil
}
