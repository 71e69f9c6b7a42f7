package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"marketplace/config"
	"marketplace/internal/delivery/http/middleware"
	"marketplace/internal/delivery/http/router"
	"marketplace/internal/delivery/http/router/handler"
	"marketplace/internal/domain/entity"
	"marketplace/internal/domain/repository"
	"marketplace/internal/domain/service"
	"marketplace/internal/infra/auth"
	"marketplace/internal/infra/persistence/model"
	"marketplace/internal/infra/persistence/postgres"
	"marketplace/internal/infra/pubsub"
	"marketplace/internal/infra/ratelimit"
	"marketplace/internal/infra/storage"
	"marketplace/internal/usecase/impl"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

type session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	Account      *struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Provider *struct {
			IDImageRefs        []string `json:"idImageRefs"`
			VerificationStatus string   `json:"verificationStatus"`
		} `json:"provider"`
	} `json:"account"`
}

type codeRecorder struct {
	mu    sync.Mutex
	codes map[string]string
}

func (r *codeRecorder) Deliver(_ context.Context, delivery service.OTPDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codes[delivery.Recipient] = delivery.Code

	return nil
}

func (r *codeRecorder) code(recipient string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.codes[recipient]
}

func (r *codeRecorder) sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.codes)
}

type apiEnv struct {
	echo      *echo.Echo
	db        *gorm.DB
	hasher    service.PasswordHasher
	accounts  repository.AccountRepository
	admins    repository.AdministratorRepository
	deliverer *codeRecorder
}

func testConfig(env string) *config.Config {
	cfg := &config.Config{
		Auth:        &config.AuthConfig{BcryptCost: 4},
		Storage:     &config.StorageConfig{UploadFolder: "id-images"},
		Maintenance: &config.MaintenanceConfig{SweepInterval: time.Minute},
		Token:       config.TokenConfig{AccessExpiry: "15m", RefreshExpiry: "7d"},
	}
	cfg.Env.Env = env
	cfg.HTTP.MaxRequestBodySize = "30MB"
	cfg.SecretKey.Access = "access-secret-for-tests"
	cfg.SecretKey.Refresh = "refresh-secret-for-tests"

	return cfg
}

func newAPIEnv(t *testing.T, env string) *apiEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, postgres.Migrate(db))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(env)

	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })

	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	hasher := auth.NewBcryptHasher(cfg)
	accountRepo := postgres.NewAccountRepository(db)
	profileRepo := postgres.NewProviderProfileRepository(db)
	pendingRepo := postgres.NewPendingRegistrationRepository(db)
	refreshRepo := postgres.NewRefreshTokenRepository(db)
	adminRepo := postgres.NewAdministratorRepository(db)
	limiter := ratelimit.NewNoopLimiter()
	publisher := pubsub.NewNoopPublisher(log)
	deliverer := &codeRecorder{codes: make(map[string]string)}

	registration := impl.NewRegistrationService(impl.RegistrationServiceParams{
		TxManager:        postgres.NewTransactionManager(db),
		AccountRepo:      accountRepo,
		PendingRepo:      pendingRepo,
		RefreshTokenRepo: refreshRepo,
		Hasher:           hasher,
		TokenService:     tokenService,
		OTPSender:        deliverer,
		ObjectStore:      storage.NewBlobStore(bucket, log),
		Limiter:          limiter,
		Publisher:        publisher,
		Config:           cfg,
		Logger:           log,
	})
	accountAuth := impl.NewAccountAuthService(impl.AccountAuthServiceParams{
		AccountRepo:      accountRepo,
		ProfileRepo:      profileRepo,
		RefreshTokenRepo: refreshRepo,
		Hasher:           hasher,
		TokenService:     tokenService,
		Limiter:          limiter,
		Publisher:        publisher,
		Config:           cfg,
		Logger:           log,
	})
	passwords := impl.NewPasswordService(impl.PasswordServiceParams{
		AccountRepo: accountRepo,
		Hasher:      hasher,
		OTPSender:   deliverer,
		Limiter:     limiter,
		Publisher:   publisher,
		Logger:      log,
	})
	adminAuth := impl.NewAdminAuthService(impl.AdminAuthServiceParams{
		AdminRepo:        adminRepo,
		RefreshTokenRepo: refreshRepo,
		Hasher:           hasher,
		TokenService:     tokenService,
		Limiter:          limiter,
		Config:           cfg,
		Logger:           log,
	})
	administrators := impl.NewAdministratorService(impl.AdministratorServiceParams{
		AdminRepo:        adminRepo,
		RefreshTokenRepo: refreshRepo,
		Hasher:           hasher,
		Logger:           log,
	})

	e := NewEcho(cfg, log, middleware.NewErrorMiddleware(log, cfg))
	router.NewRouter(router.RouterParams{
		RegistrationHandler: handler.NewRegistrationHandler(registration),
		AccountHandler:      handler.NewAccountHandler(accountAuth, passwords),
		AdminHandler: handler.NewAdminHandler(adminAuth, administrators,
			impl.NewAccountQueryService(accountRepo, profileRepo)),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthMiddlewareParams{
			TokenService: tokenService,
			AccountRepo:  accountRepo,
			AdminRepo:    adminRepo,
		}),
	}).RegisterRoutes(e)

	return &apiEnv{
		echo:      e,
		db:        db,
		hasher:    hasher,
		accounts:  accountRepo,
		admins:    adminRepo,
		deliverer: deliverer,
	}
}

func (env *apiEnv) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	return env.serve(t, req, token)
}

func (env *apiEnv) serve(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()

	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return rec.Code, out
}

func (env *apiEnv) seedAccount(t *testing.T, email, password string, role entity.Role) *entity.Account {
	t.Helper()

	hash, err := env.hasher.Hash(password)
	require.NoError(t, err)
	account := &entity.Account{
		FullName:      "Seeded Account",
		Email:         email,
		PasswordHash:  hash,
		AuthProvider:  entity.AuthProviderLocal,
		Role:          role,
		Active:        true,
		TermsAccepted: true,
	}
	require.NoError(t, env.accounts.Create(context.Background(), account))

	return account
}

func (env *apiEnv) seedAdmin(t *testing.T, email string, role entity.AdminRole) *entity.Administrator {
	t.Helper()

	hash, err := env.hasher.Hash("admin-pass")
	require.NoError(t, err)
	admin := &entity.Administrator{
		FullName:     "Seeded Admin",
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Role:         role,
	}
	require.NoError(t, env.admins.Create(context.Background(), admin))

	return admin
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(raw, &out))

	return out
}

func errorCode(out envelope) string {
	if out.Error == nil {
		return ""
	}

	return out.Error.Code
}

func userSignup(email string) map[string]any {
	return map[string]any{
		"email":         email,
		"fullName":      "Jane Doe",
		"password":      "s3cret-pass",
		"termsAccepted": true,
	}
}

func TestUserRegistrationFlow(t *testing.T) {
	env := newAPIEnv(t, "test")

	status, out := env.do(t, http.MethodPost, "/auth/register/request-otp", userSignup("Jane@Example.com"), "")
	require.Equal(t, http.StatusOK, status, out.Message)
	assert.True(t, out.Success)
	assert.Equal(t, "email", decode[map[string]any](t, out.Data)["channel"])

	code := env.deliverer.code("jane@example.com")
	require.Len(t, code, 6)

	status, out = env.do(t, http.MethodPost, "/auth/register/verify-otp", map[string]any{
		"email": "jane@example.com",
		"otp":   code,
	}, "")
	require.Equal(t, http.StatusCreated, status, out.Message)
	created := decode[session](t, out.Data)
	assert.NotEmpty(t, created.AccessToken)
	assert.NotEmpty(t, created.RefreshToken)
	assert.Equal(t, int64(900), created.ExpiresIn)
	require.NotNil(t, created.Account)
	assert.Equal(t, "jane@example.com", created.Account.Email)
	assert.Equal(t, "user", created.Account.Role)

	status, out = env.do(t, http.MethodGet, "/auth/me", nil, created.AccessToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.Account.ID, decode[map[string]any](t, out.Data)["id"])

	status, out = env.do(t, http.MethodPost, "/auth/register/request-otp", userSignup("jane@example.com"), "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ALREADY_REGISTERED", errorCode(out))
}

func TestUserRegistrationDeferredCompletion(t *testing.T) {
	env := newAPIEnv(t, "test")

	status, _ := env.do(t, http.MethodPost, "/auth/register/request-otp", map[string]any{"email": "later@example.com"}, "")
	require.Equal(t, http.StatusOK, status)

	status, out := env.do(t, http.MethodPost, "/auth/register/verify-otp", map[string]any{
		"email": "later@example.com",
		"otp":   env.deliverer.code("later@example.com"),
	}, "")
	require.Equal(t, http.StatusOK, status, out.Message)
	deferred := decode[map[string]any](t, out.Data)
	assert.Equal(t, false, deferred["completed"])
	verificationToken, _ := deferred["verificationToken"].(string)
	require.Len(t, verificationToken, 64)

	body := userSignup("later@example.com")
	body["verificationToken"] = verificationToken
	status, out = env.do(t, http.MethodPost, "/auth/register/complete", body, "")
	require.Equal(t, http.StatusCreated, status, out.Message)
	assert.NotEmpty(t, decode[session](t, out.Data).AccessToken)

	status, out = env.do(t, http.MethodPost, "/auth/register/complete", body, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, out.Success)
}

func TestUserRegistrationExpiredOtp(t *testing.T) {
	env := newAPIEnv(t, "test")

	status, _ := env.do(t, http.MethodPost, "/auth/register/request-otp", userSignup("late@example.com"), "")
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, env.db.Model(&model.PendingRegistrationModel{}).
		Where("email = ?", "late@example.com").
		Update("otp_expires_at", time.Now().Add(-time.Second)).Error)

	status, out := env.do(t, http.MethodPost, "/auth/register/verify-otp", map[string]any{
		"email": "late@example.com",
		"otp":   env.deliverer.code("late@example.com"),
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "OTP_EXPIRED", errorCode(out))

	_, err := env.accounts.FindByEmail(context.Background(), "late@example.com")
	assert.Error(t, err)
}

func TestUserRegistrationConcurrentVerify(t *testing.T) {
	env := newAPIEnv(t, "test")

	status, _ := env.do(t, http.MethodPost, "/auth/register/request-otp", userSignup("race@example.com"), "")
	require.Equal(t, http.StatusOK, status)
	body := map[string]any{"email": "race@example.com", "otp": env.deliverer.code("race@example.com")}

	statuses := make([]int, 2)
	codes := make([]string, 2)
	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, _ := json.Marshal(body)
			req := httptest.NewRequest(http.MethodPost, "/auth/register/verify-otp", bytes.NewReader(raw))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			env.echo.ServeHTTP(rec, req)

			var out envelope
			_ = json.Unmarshal(rec.Body.Bytes(), &out)
			statuses[i] = rec.Code
			codes[i] = errorCode(out)
		}(i)
	}
	wg.Wait()

	created := 0
	for i, status := range statuses {
		if status == http.StatusCreated {
			created++

			continue
		}
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "ALREADY_REGISTERED", codes[i])
	}
	assert.Equal(t, 1, created)

	var count int64
	require.NoError(t, env.db.Model(&model.AccountModel{}).Where("email = ?", "race@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRefreshRotation(t *testing.T) {
	env := newAPIEnv(t, "test")
	env.seedAccount(t, "rotate@example.com", "s3cret-pass", entity.RoleUser)

	status, out := env.do(t, http.MethodPost, "/auth/login", map[string]any{
		"email":    "rotate@example.com",
		"password": "s3cret-pass",
	}, "")
	require.Equal(t, http.StatusOK, status, out.Message)
	first := decode[session](t, out.Data)

	status, out = env.do(t, http.MethodPost, "/auth/refresh", map[string]any{"refreshToken": first.RefreshToken}, "")
	require.Equal(t, http.StatusOK, status, out.Message)
	second := decode[session](t, out.Data)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	status, out = env.do(t, http.MethodPost, "/auth/refresh", map[string]any{"refreshToken": first.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(out))

	status, _ = env.do(t, http.MethodPost, "/auth/refresh", map[string]any{"refreshToken": second.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestLogoutAll(t *testing.T) {
	env := newAPIEnv(t, "test")
	env.seedAccount(t, "many@example.com", "s3cret-pass", entity.RoleUser)
	login := map[string]any{"email": "many@example.com", "password": "s3cret-pass"}

	_, out := env.do(t, http.MethodPost, "/auth/login", login, "")
	first := decode[session](t, out.Data)
	_, out = env.do(t, http.MethodPost, "/auth/login", login, "")
	second := decode[session](t, out.Data)

	status, out := env.do(t, http.MethodPost, "/auth/logout-all", nil, second.AccessToken)
	require.Equal(t, http.StatusOK, status, out.Message)
	assert.Equal(t, float64(2), decode[map[string]any](t, out.Data)["revokedSessions"])

	status, _ = env.do(t, http.MethodPost, "/auth/refresh", map[string]any{"refreshToken": first.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPrincipalKindIsolation(t *testing.T) {
	env := newAPIEnv(t, "test")
	env.seedAdmin(t, "root@example.com", entity.AdminRoleSuperAdmin)
	env.seedAccount(t, "user@example.com", "s3cret-pass", entity.RoleUser)

	status, out := env.do(t, http.MethodPost, "/admin/login", map[string]any{
		"email":    "root@example.com",
		"password": "admin-pass",
	}, "")
	require.Equal(t, http.StatusOK, status, out.Message)
	admin := decode[session](t, out.Data)

	_, out = env.do(t, http.MethodPost, "/auth/login", map[string]any{
		"email":    "user@example.com",
		"password": "s3cret-pass",
	}, "")
	user := decode[session](t, out.Data)

	tests := []struct {
		name  string
		path  string
		token string
	}{
		{name: "administrator token on account route", path: "/auth/me", token: admin.AccessToken},
		{name: "account token on administrator route", path: "/admin/me", token: user.AccessToken},
		{name: "refresh token as access token", path: "/auth/me", token: user.RefreshToken},
		{name: "missing token", path: "/auth/me"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := env.do(t, http.MethodGet, tt.path, nil, tt.token)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.False(t, out.Success)
			assert.NotEmpty(t, errorCode(out))
		})
	}

	status, _ = env.do(t, http.MethodPost, "/admin/refresh-token", map[string]any{"refreshToken": user.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestForgotPasswordDoesNotRevealContact(t *testing.T) {
	env := newAPIEnv(t, "test")
	env.seedAccount(t, "known@example.com", "s3cret-pass", entity.RoleUser)

	knownStatus, known := env.do(t, http.MethodPost, "/auth/forgot-password", map[string]any{"email": "known@example.com"}, "")
	unknownStatus, unknown := env.do(t, http.MethodPost, "/auth/forgot-password", map[string]any{"email": "ghost@example.com"}, "")

	assert.Equal(t, http.StatusOK, knownStatus)
	assert.Equal(t, knownStatus, unknownStatus)
	assert.Equal(t, known.Message, unknown.Message)
	assert.Equal(t, 1, env.deliverer.sent())

	status, out := env.do(t, http.MethodPost, "/auth/verify-otp", map[string]any{
		"email": "known@example.com",
		"otp":   env.deliverer.code("known@example.com"),
	}, "")
	require.Equal(t, http.StatusOK, status, out.Message)
	resetToken, _ := decode[map[string]any](t, out.Data)["resetToken"].(string)
	require.NotEmpty(t, resetToken)

	status, _ = env.do(t, http.MethodPost, "/auth/reset-password", map[string]any{
		"resetToken":  resetToken,
		"newPassword": "another-pass",
	}, "")
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/auth/login", map[string]any{
		"email":    "known@example.com",
		"password": "another-pass",
	}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestErrorEnvelope(t *testing.T) {
	t.Run("validation details outside production", func(t *testing.T) {
		env := newAPIEnv(t, "test")

		status, out := env.do(t, http.MethodPost, "/auth/login", map[string]any{
			"email":    "not-an-email",
			"password": "whatever",
		}, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.False(t, out.Success)
		assert.Equal(t, "INVALID_INPUT", errorCode(out))
		assert.NotEmpty(t, out.Error.Details)
		assert.Empty(t, out.Data)
	})

	t.Run("details hidden in production", func(t *testing.T) {
		env := newAPIEnv(t, "production")

		status, out := env.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "not-an-email"}, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_INPUT", errorCode(out))
		assert.Empty(t, out.Error.Details)
	})

	t.Run("missing contact", func(t *testing.T) {
		env := newAPIEnv(t, "test")

		status, out := env.do(t, http.MethodPost, "/auth/forgot-password", map[string]any{}, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_INPUT", errorCode(out))
	})

	t.Run("unknown route", func(t *testing.T) {
		env := newAPIEnv(t, "test")

		status, out := env.do(t, http.MethodGet, "/nowhere", nil, "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "NOT_FOUND", errorCode(out))
	})

	t.Run("multi-byte password over the bcrypt limit", func(t *testing.T) {
		env := newAPIEnv(t, "test")

		body := userSignup("user@example.com")
		body["password"] = strings.Repeat("€", 30)
		status, out := env.do(t, http.MethodPost, "/auth/register/request-otp", body, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_INPUT", errorCode(out))
		assert.Empty(t, env.deliverer.codes)
	})

	t.Run("one character name", func(t *testing.T) {
		env := newAPIEnv(t, "test")

		body := userSignup("user@example.com")
		body["fullName"] = "A"
		status, out := env.do(t, http.MethodPost, "/auth/register/request-otp", body, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_INPUT", errorCode(out))
	})

	t.Run("wrong current password is unauthorized", func(t *testing.T) {
		env := newAPIEnv(t, "test")
		env.seedAccount(t, "user@example.com", "s3cret-pass", entity.RoleUser)

		status, out := env.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "user@example.com", "password": "s3cret-pass"}, "")
		require.Equal(t, http.StatusOK, status, out.Message)
		token := decode[session](t, out.Data).AccessToken

		status, out = env.do(t, http.MethodPost, "/auth/change-password", map[string]any{
			"currentPassword": "not-it-at-all",
			"newPassword":     "n3w-secret",
		}, token)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(out))
	})

	t.Run("wrong credentials are uniform", func(t *testing.T) {
		env := newAPIEnv(t, "test")
		env.seedAccount(t, "user@example.com", "s3cret-pass", entity.RoleUser)

		_, wrongPassword := env.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "user@example.com", "password": "nope-nope"}, "")
		status, unknown := env.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "ghost@example.com", "password": "nope-nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, wrongPassword.Message, unknown.Message)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(unknown))
	})
}

func TestAdministratorRoutes(t *testing.T) {
	env := newAPIEnv(t, "test")
	env.seedAdmin(t, "root@example.com", entity.AdminRoleSuperAdmin)
	account := env.seedAccount(t, "user@example.com", "s3cret-pass", entity.RoleUser)

	adminLogin := func(email, password string) string {
		status, out := env.do(t, http.MethodPost, "/admin/login", map[string]any{"email": email, "password": password}, "")
		require.Equal(t, http.StatusOK, status, out.Message)

		return decode[session](t, out.Data).AccessToken
	}
	root := adminLogin("root@example.com", "admin-pass")

	status, out := env.do(t, http.MethodPost, "/admin/administrators", map[string]any{
		"fullName": "Ops",
		"email":    "ops@example.com",
		"password": "ops-pass-1",
	}, root)
	require.Equal(t, http.StatusCreated, status, out.Message)
	created := decode[map[string]any](t, out.Data)
	assert.Equal(t, "admin", created["role"])
	assert.Equal(t, []any{"canViewReports"}, created["permissions"])
	opsID, _ := created["id"].(string)

	ops := adminLogin("ops@example.com", "ops-pass-1")

	status, out = env.do(t, http.MethodGet, "/admin/administrators", nil, ops)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(out))

	status, _ = env.do(t, http.MethodGet, "/admin/accounts/"+account.ID.String(), nil, ops)
	assert.Equal(t, http.StatusForbidden, status)

	status, out = env.do(t, http.MethodGet, "/admin/accounts/"+account.ID.String(), nil, root)
	require.Equal(t, http.StatusOK, status, out.Message)
	assert.Equal(t, "user@example.com", decode[map[string]any](t, out.Data)["email"])

	status, out = env.do(t, http.MethodPatch, "/admin/administrators/"+opsID, map[string]any{
		"permissions": []string{"canManageUsers"},
	}, root)
	require.Equal(t, http.StatusOK, status, out.Message)

	status, _ = env.do(t, http.MethodGet, "/admin/accounts/"+account.ID.String(), nil, ops)
	assert.Equal(t, http.StatusOK, status)

	status, out = env.do(t, http.MethodGet, "/admin/administrators/not-a-uuid", nil, root)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", errorCode(out))

	status, out = env.do(t, http.MethodPatch, "/admin/administrators/"+opsID+"/toggle-active", nil, root)
	require.Equal(t, http.StatusOK, status, out.Message)
	assert.Equal(t, false, decode[map[string]any](t, out.Data)["active"])

	status, out = env.do(t, http.MethodGet, "/admin/me", nil, ops)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", errorCode(out))

	status, _ = env.do(t, http.MethodDelete, "/admin/administrators/"+opsID, nil, root)
	assert.Equal(t, http.StatusOK, status)

	status, out = env.do(t, http.MethodGet, "/admin/administrators", nil, root)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]any](t, out.Data), 1)
}

func TestProviderRegistrationWithIDImages(t *testing.T) {
	env := newAPIEnv(t, "test")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for key, value := range map[string]string{
		"email":         "pro@example.com",
		"fullName":      "Pat Provider",
		"password":      "s3cret-pass",
		"termsAccepted": "true",
		"occupation":    "Plumber",
	} {
		require.NoError(t, form.WriteField(key, value))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="idImages"; filename="front.png"`)
	header.Set(echo.HeaderContentType, "image/png")
	part, err := form.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/providers/register", &body)
	req.Header.Set(echo.HeaderContentType, form.FormDataContentType())
	status, out := env.serve(t, req, "")
	require.Equal(t, http.StatusOK, status, out.Message)

	status, out = env.do(t, http.MethodPost, "/providers/register/verify-otp", map[string]any{
		"email": "pro@example.com",
		"otp":   env.deliverer.code("pro@example.com"),
	}, "")
	require.Equal(t, http.StatusCreated, status, out.Message)
	created := decode[session](t, out.Data)
	require.NotNil(t, created.Account)
	assert.Equal(t, "provider", created.Account.Role)
	require.NotNil(t, created.Account.Provider)
	assert.Len(t, created.Account.Provider.IDImageRefs, 1)
	assert.Equal(t, "pending", created.Account.Provider.VerificationStatus)

	login := map[string]any{"email": "pro@example.com", "password": "s3cret-pass"}
	status, _ = env.do(t, http.MethodPost, "/providers/login", login, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/auth/login", login, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProviderRegistrationRejectsUnsupportedFile(t *testing.T) {
	env := newAPIEnv(t, "test")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("email", "pro@example.com"))
	part, err := form.CreateFormFile("idImages", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/providers/register", &body)
	req.Header.Set(echo.HeaderContentType, form.FormDataContentType())
	status, out := env.serve(t, req, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", errorCode(out))
	assert.Zero(t, env.deliverer.sent())
}
