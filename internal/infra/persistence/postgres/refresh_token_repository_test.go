package postgres

import (
	"context"
	"testing"
	"time"

	"marketplace/internal/domain/entity"
	"marketplace/internal/domain/repository"
	"marketplace/internal/infra/persistence/model"
	"marketplace/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(ownerID uuid.UUID, raw string, ttl time.Duration) *entity.RefreshToken {
	return &entity.RefreshToken{
		OwnerKind:  entity.PrincipalAccount,
		OwnerID:    ownerID,
		TokenHash:  util.Fingerprint(raw),
		ExpiresAt:  time.Now().Add(ttl),
		DeviceInfo: entity.DeviceInfo{UserAgent: "test-agent", IP: "127.0.0.1"},
	}
}

func TestRefreshTokenRepository_PersistAndLookup(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRefreshTokenRepository(db)
	ownerID := uuid.New()

	token := newSession(ownerID, "raw-token-1", time.Hour)
	require.NoError(t, repo.CreateRefreshToken(ctx, token))

	found, err := repo.FindByOwnerAndHash(ctx, entity.PrincipalAccount, ownerID, util.Fingerprint("raw-token-1"))
	require.NoError(t, err)
	assert.Equal(t, token.ID, found.ID)
	assert.Equal(t, "test-agent", found.DeviceInfo.UserAgent)

	_, err = repo.FindByOwnerAndHash(ctx, entity.PrincipalAdministrator, ownerID, util.Fingerprint("raw-token-1"))
	assert.ErrorIs(t, err, repository.ErrRefreshTokenNotFound)
	_, err = repo.FindByOwnerAndHash(ctx, entity.PrincipalAccount, uuid.New(), util.Fingerprint("raw-token-1"))
	assert.ErrorIs(t, err, repository.ErrRefreshTokenNotFound)

	err = repo.CreateRefreshToken(ctx, newSession(ownerID, "raw-token-1", time.Hour))
	assert.ErrorIs(t, err, repository.ErrRefreshTokenConflict)

	// Nothing at rest equals the raw token.
	var stored []model.RefreshTokenModel
	require.NoError(t, db.Find(&stored).Error)
	for _, row := range stored {
		assert.NotEqual(t, "raw-token-1", row.TokenHash)
	}
}

func TestRefreshTokenRepository_RotateIsSingleUse(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepository(newTestDB(t))
	ownerID := uuid.New()

	consumed := newSession(ownerID, "r1", time.Hour)
	require.NoError(t, repo.CreateRefreshToken(ctx, consumed))

	next := newSession(ownerID, "r2", time.Hour)
	require.NoError(t, repo.Rotate(ctx, consumed, next))
	require.NotNil(t, next.LastUsedAt)

	old, err := repo.FindRefreshTokenByHash(ctx, util.Fingerprint("r1"))
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	assert.False(t, old.IsValid(time.Now()))

	// A second rotation of the same record loses.
	err = repo.Rotate(ctx, consumed, newSession(ownerID, "r3", time.Hour))
	assert.ErrorIs(t, err, repository.ErrRefreshTokenNotFound)

	_, err = repo.FindRefreshTokenByHash(ctx, util.Fingerprint("r3"))
	assert.ErrorIs(t, err, repository.ErrRefreshTokenNotFound)

	current, err := repo.FindRefreshTokenByHash(ctx, util.Fingerprint("r2"))
	require.NoError(t, err)
	assert.True(t, current.IsValid(time.Now()))
}

func TestRefreshTokenRepository_RevokeAndCleanup(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepository(newTestDB(t))
	ownerID := uuid.New()
	other := uuid.New()

	require.NoError(t, repo.CreateRefreshToken(ctx, newSession(ownerID, "a", time.Hour)))
	require.NoError(t, repo.CreateRefreshToken(ctx, newSession(ownerID, "b", time.Hour)))
	require.NoError(t, repo.CreateRefreshToken(ctx, newSession(ownerID, "expired", -time.Minute)))
	require.NoError(t, repo.CreateRefreshToken(ctx, newSession(other, "c", time.Hour)))

	count, err := repo.CountActive(ctx, entity.PrincipalAccount, ownerID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.RevokeByHash(ctx, util.Fingerprint("a")))
	require.NoError(t, repo.RevokeByHash(ctx, util.Fingerprint("a")))
	require.NoError(t, repo.RevokeByHash(ctx, util.Fingerprint("missing")))

	revoked, err := repo.RevokeAllFor(ctx, entity.PrincipalAccount, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked) // "b" and "expired"

	count, err = repo.CountActive(ctx, entity.PrincipalAccount, ownerID, time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	survivor, err := repo.FindRefreshTokenByHash(ctx, util.Fingerprint("c"))
	require.NoError(t, err)
	assert.Equal(t, other, survivor.OwnerID)
}
