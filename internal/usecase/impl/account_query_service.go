package impl

import (
	"context"

	"marketplace/internal/domain/repository"
	"marketplace/internal/usecase"

	"github.com/google/uuid"
)

// accountQueryService implements the AccountQueryUsecase interface.
type accountQueryService struct {
	accountRepo repository.AccountRepository
	profileRepo repository.ProviderProfileRepository
}

// NewAccountQueryService is the constructor for accountQueryService.
func NewAccountQueryService(
	accountRepo repository.AccountRepository,
	profileRepo repository.ProviderProfileRepository,
) usecase.AccountQueryUsecase {
	return &accountQueryService{accountRepo: accountRepo, profileRepo: profileRepo}
}

func (srv *accountQueryService) Get(ctx context.Context, accountID uuid.UUID) (*usecase.AccountSummary, error) {
	return loadAccountSummary(ctx, srv.accountRepo, srv.profileRepo, accountID)
}
