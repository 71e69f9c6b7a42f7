package postgres

import (
	"context"
	"testing"

	"marketplace/internal/domain/entity"
	"marketplace/internal/domain/repository"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	txManager := NewTransactionManager(db)
	errBoom := errors.New("boom")

	err := txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		if err := factory.NewAccountRepository().Create(ctx, newLocalAccount("tx@b.c", "")); err != nil {
			return err
		}

		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	_, err = NewAccountRepository(db).FindByEmail(ctx, "tx@b.c")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestTransactionManager_CommitsAcrossRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	txManager := NewTransactionManager(db)

	account := newLocalAccount("commit@b.c", "")
	account.Role = entity.RoleProvider

	err := txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		if err := factory.NewAccountRepository().Create(ctx, account); err != nil {
			return err
		}

		return factory.NewProviderProfileRepository().Create(ctx, &entity.ProviderProfile{AccountID: account.ID})
	})
	require.NoError(t, err)

	profile, err := NewProviderProfileRepository(db).FindByAccountID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, profile.AccountID)
}
