package config

import (
	"testing"
	"time"

	"github.com/slighter12/go-lib/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
		},
		"secretKey": map[string]any{
			"access": "",
		},
		"rateLimit": map[string]any{
			"otp": map[string]any{"max": 3},
		},
		"notification": map[string]any{
			"email": map[string]any{"fromName": ""},
			"sms":   map[string]any{"accountSid": ""},
		},
		"events": map[string]any{
			"amqpUrl": "",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "POSTGRES_SSLMODE", want: "postgres.sslMode"},
		{envKey: "SECRETKEY_ACCESS", want: "secretKey.access"},
		{envKey: "RATELIMIT_OTP_MAX", want: "rateLimit.otp.max"},
		{envKey: "NOTIFICATION_EMAIL_FROMNAME", want: "notification.email.fromName"},
		{envKey: "NOTIFICATION_SMS_ACCOUNTSID", want: "notification.sms.accountSid"},
		{envKey: "EVENTS_AMQPURL", want: "events.amqpUrl"},
		{envKey: "GOOGLEOAUTH_CLIENTID", want: "googleoauth.clientid"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalizeEnvKey(tt.envKey, existing))
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{Postgres: &postgres.DBConn{}}
	cfg.SecretKey.Access = "access"

	require.NoError(t, cfg.applyDefaults())
	assert.Equal(t, defaultMaxRequestBodySize, cfg.HTTP.MaxRequestBodySize)
	assert.Equal(t, "15m", cfg.Token.AccessExpiry)
	assert.Equal(t, "7d", cfg.Token.RefreshExpiry)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "mem://", cfg.Storage.BucketURL)
	assert.Equal(t, "provider-id-images", cfg.Storage.UploadFolder)
	assert.Equal(t, 10*time.Minute, cfg.Maintenance.SweepInterval)
}

func TestApplyDefaults_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{name: "missing postgres", mutate: func(cfg *Config) { cfg.Postgres = nil }},
		{name: "missing access secret", mutate: func(cfg *Config) { cfg.SecretKey.Access = " " }},
		{name: "bad access expiry", mutate: func(cfg *Config) { cfg.Token.AccessExpiry = "soon" }},
		{name: "bcrypt cost too high", mutate: func(cfg *Config) { cfg.Auth = &AuthConfig{BcryptCost: 40} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Postgres: &postgres.DBConn{}}
			cfg.SecretKey.Access = "access"
			tt.mutate(cfg)

			assert.Error(t, cfg.applyDefaults())
		})
	}
}

func TestIsProduction(t *testing.T) {
	for env, want := range map[string]bool{
		"prod":       true,
		"Production": true,
		"dev":        false,
		"":           false,
	} {
		cfg := &Config{}
		cfg.Env.Env = env
		assert.Equal(t, want, cfg.IsProduction(), env)
	}
}
