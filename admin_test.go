package accounts_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseBulkAction(t *testing.T) {
	for raw, want := range map[string]accounts.BulkAction{
		"block":             accounts.BulkActionBlock,
		"Unblock":           accounts.BulkActionUnblock,
		" delete ":          accounts.BulkActionDelete,
		"DELETE_UNVERIFIED": accounts.BulkActionDeleteUnverified,
	} {
		action, err := accounts.ParseBulkAction(raw)
		require.NoError(t, err)
		assert.Equal(t, want, action)
	}

	_, err := accounts.ParseBulkAction("promote")
	require.Error(t, err)
	assert.True(t, accounts.IsValidationError(err))
}

func TestBulkOperator_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("block and unblock move statuses", func(t *testing.T) {
		repo := setupRepoManager(t)
		operator := accounts.NewBulkOperator(repo)

		a := seedAccount(t, repo, &accounts.Account{Name: "A", Email: "a@example.com"})
		b := seedAccount(t, repo, &accounts.Account{Name: "B", Email: "b@example.com"})

		affected, err := operator.Apply(ctx, accounts.BulkActionBlock, []uuid.UUID{a.ID, b.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 2, affected)

		stored, err := repo.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, accounts.AccountStatusBlocked, stored.Status)

		affected, err = operator.Apply(ctx, accounts.BulkActionUnblock, []uuid.UUID{a.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		stored, err = repo.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, accounts.AccountStatusActive, stored.Status)
	})

	t.Run("unknown ids are skipped not errors", func(t *testing.T) {
		repo := setupRepoManager(t)
		operator := accounts.NewBulkOperator(repo)

		a := seedAccount(t, repo, &accounts.Account{Name: "A", Email: "a@example.com"})

		affected, err := operator.Apply(ctx, accounts.BulkActionBlock, []uuid.UUID{a.ID, uuid.New(), uuid.New()})
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)
	})

	t.Run("empty selection is a no-op", func(t *testing.T) {
		repo := setupRepoManager(t)
		operator := accounts.NewBulkOperator(repo)

		affected, err := operator.Apply(ctx, accounts.BulkActionDelete, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 0, affected)
	})

	t.Run("delete removes the selected accounts", func(t *testing.T) {
		repo := setupRepoManager(t)
		operator := accounts.NewBulkOperator(repo)

		a := seedAccount(t, repo, &accounts.Account{Name: "A", Email: "a@example.com"})
		seedAccount(t, repo, &accounts.Account{Name: "B", Email: "b@example.com"})

		affected, err := operator.Apply(ctx, accounts.BulkActionDelete, []uuid.UUID{a.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		records, err := repo.Accounts().ListByLastLogin(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "b@example.com", records[0].Email)
	})

	t.Run("delete unverified is idempotent", func(t *testing.T) {
		repo := setupRepoManager(t)
		operator := accounts.NewBulkOperator(repo)

		seedAccount(t, repo, &accounts.Account{Name: "U1", Email: "u1@example.com"})
		seedAccount(t, repo, &accounts.Account{Name: "U2", Email: "u2@example.com"})
		seedAccount(t, repo, &accounts.Account{Name: "Active", Email: "active@example.com", Status: accounts.AccountStatusActive})

		affected, err := operator.Apply(ctx, accounts.BulkActionDeleteUnverified, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 2, affected)

		// the second run finds nothing left to delete
		affected, err = operator.Apply(ctx, accounts.BulkActionDeleteUnverified, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 0, affected)
	})

	t.Run("invalidates cached statuses after commit", func(t *testing.T) {
		repo := setupRepoManager(t)
		cache := new(MockStatusCache)
		operator := accounts.NewBulkOperator(repo, accounts.WithBulkStatusCache(cache))

		a := seedAccount(t, repo, &accounts.Account{Name: "A", Email: "a@example.com"})

		cache.On("Invalidate", mock.Anything, []uuid.UUID{a.ID}).Return(nil)

		_, err := operator.Apply(ctx, accounts.BulkActionBlock, []uuid.UUID{a.ID})
		require.NoError(t, err)

		cache.AssertCalled(t, "Invalidate", mock.Anything, []uuid.UUID{a.ID})
	})
}
