package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"marketplace/config"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/domain/repository"
	"marketplace/internal/domain/service"
	"marketplace/internal/infra/auth"
	"marketplace/internal/infra/persistence/postgres"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(maxActiveSessions int) *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:        4,
			MaxActiveSessions: maxActiveSessions,
		},
		Storage: &config.StorageConfig{UploadFolder: "id-images"},
		Token: config.TokenConfig{
			AccessExpiry:  "15m",
			RefreshExpiry: "7d",
		},
	}
	cfg.SecretKey.Access = "access-secret-for-tests"
	cfg.SecretKey.Refresh = "refresh-secret-for-tests"

	return cfg
}

// testEnv wires the use cases against an in-memory SQLite database and
// recording fakes for the outbound collaborators.
type testEnv struct {
	cfg          *config.Config
	db           *gorm.DB
	txManager    repository.TransactionManager
	accountRepo  repository.AccountRepository
	profileRepo  repository.ProviderProfileRepository
	pendingRepo  repository.PendingRegistrationRepository
	refreshRepo  repository.RefreshTokenRepository
	adminRepo    repository.AdministratorRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	sender       *fakeOTPSender
	store        *fakeObjectStore
	publisher    *fakePublisher
	limiter      *fakeLimiter
	logger       *slog.Logger
}

func newTestEnv(t *testing.T, maxActiveSessions int) *testEnv {
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

	cfg := newTestConfig(maxActiveSessions)
	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	return &testEnv{
		cfg:          cfg,
		db:           db,
		txManager:    postgres.NewTransactionManager(db),
		accountRepo:  postgres.NewAccountRepository(db),
		profileRepo:  postgres.NewProviderProfileRepository(db),
		pendingRepo:  postgres.NewPendingRegistrationRepository(db),
		refreshRepo:  postgres.NewRefreshTokenRepository(db),
		adminRepo:    postgres.NewAdministratorRepository(db),
		hasher:       auth.NewBcryptHasher(cfg),
		tokenService: tokenService,
		sender:       &fakeOTPSender{},
		store:        newFakeObjectStore(),
		publisher:    &fakePublisher{},
		limiter:      &fakeLimiter{},
		logger:       newDiscardLogger(),
	}
}

func (env *testEnv) registration() *registrationService {
	return NewRegistrationService(RegistrationServiceParams{
		TxManager:        env.txManager,
		AccountRepo:      env.accountRepo,
		PendingRepo:      env.pendingRepo,
		RefreshTokenRepo: env.refreshRepo,
		Hasher:           env.hasher,
		TokenService:     env.tokenService,
		OTPSender:        env.sender,
		ObjectStore:      env.store,
		Limiter:          env.limiter,
		Publisher:        env.publisher,
		Config:           env.cfg,
		Logger:           env.logger,
	}).(*registrationService)
}

func (env *testEnv) passwords() *passwordService {
	return NewPasswordService(PasswordServiceParams{
		AccountRepo: env.accountRepo,
		Hasher:      env.hasher,
		OTPSender:   env.sender,
		Limiter:     env.limiter,
		Publisher:   env.publisher,
		Logger:      env.logger,
	}).(*passwordService)
}

func (env *testEnv) accountAuth(oauth service.OAuthAuthService) *accountAuthService {
	return NewAccountAuthService(AccountAuthServiceParams{
		AccountRepo:       env.accountRepo,
		ProfileRepo:       env.profileRepo,
		RefreshTokenRepo:  env.refreshRepo,
		Hasher:            env.hasher,
		TokenService:      env.tokenService,
		GoogleAuthService: oauth,
		Limiter:           env.limiter,
		Publisher:         env.publisher,
		Config:            env.cfg,
		Logger:            env.logger,
	}).(*accountAuthService)
}

func (env *testEnv) adminAuth() *adminAuthService {
	return NewAdminAuthService(AdminAuthServiceParams{
		AdminRepo:        env.adminRepo,
		RefreshTokenRepo: env.refreshRepo,
		Hasher:           env.hasher,
		TokenService:     env.tokenService,
		Limiter:          env.limiter,
		Config:           env.cfg,
		Logger:           env.logger,
	}).(*adminAuthService)
}

func (env *testEnv) administrators() *administratorService {
	return NewAdministratorService(AdministratorServiceParams{
		AdminRepo:        env.adminRepo,
		RefreshTokenRepo: env.refreshRepo,
		Hasher:           env.hasher,
		Logger:           env.logger,
	}).(*administratorService)
}

// seedAccount stores an active local account with the given password.
func (env *testEnv) seedAccount(t *testing.T, email, phone, password string, role entity.Role) *entity.Account {
	t.Helper()

	hash, err := env.hasher.Hash(password)
	require.NoError(t, err)

	account := &entity.Account{
		FullName:      "Seeded Account",
		Email:         email,
		Phone:         phone,
		PasswordHash:  hash,
		AuthProvider:  entity.AuthProviderLocal,
		Role:          role,
		Active:        true,
		TermsAccepted: true,
	}
	require.NoError(t, env.accountRepo.Create(context.Background(), account))

	return account
}

func (env *testEnv) seedAdmin(t *testing.T, email string, role entity.AdminRole) *entity.Administrator {
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
	require.NoError(t, env.adminRepo.Create(context.Background(), admin))

	return admin
}

type fakeOTPSender struct {
	mu         sync.Mutex
	deliveries []service.OTPDelivery
	err        error
}

func (f *fakeOTPSender) Deliver(_ context.Context, delivery service.OTPDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, delivery)

	return nil
}

func (f *fakeOTPSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.deliveries)
}

func (f *fakeOTPSender) last() service.OTPDelivery {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.deliveries) == 0 {
		return service.OTPDelivery{}
	}

	return f.deliveries[len(f.deliveries)-1]
}

func (f *fakeOTPSender) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeObjectStore struct {
	mu      sync.Mutex
	next    int
	objects map[string]bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string]bool)}
}

func (f *fakeObjectStore) Upload(_ context.Context, folder string, file service.UploadedFile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	handle := fmt.Sprintf("%s/%d-%s", folder, f.next, file.Name)
	f.objects[handle] = true

	return handle, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, handle)

	return nil
}

func (f *fakeObjectStore) has(handle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.objects[handle]
}

func (f *fakeObjectStore) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.objects)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*entity.AccountEvent
}

func (f *fakePublisher) PublishAccountEvent(_ context.Context, event *entity.AccountEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, event)

	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) types() []entity.AccountEventType {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]entity.AccountEventType, 0, len(f.events))
	for _, event := range f.events {
		types = append(types, event.Type)
	}

	return types
}

type fakeLimiter struct {
	mu     sync.Mutex
	denied map[service.LimitScope]bool
}

func (f *fakeLimiter) Allow(_ context.Context, scope service.LimitScope, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.denied[scope], nil
}

func (f *fakeLimiter) deny(scope service.LimitScope) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.denied == nil {
		f.denied = make(map[service.LimitScope]bool)
	}
	f.denied[scope] = true
}

type fakeOAuthService struct {
	user *service.OAuthUser
	err  error
}

func (f *fakeOAuthService) VerifyIDToken(_ context.Context, _ string) (*service.OAuthUser, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.user, nil
}

func (f *fakeOAuthService) GetProvider() entity.AuthProvider {
	return entity.AuthProviderGoogle
}

var errSMTPDown = domainerrors.ErrDeliveryFailed.WithDetails("smtp: connection refused")

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
