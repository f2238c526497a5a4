package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdavid/mailsift/internal/testutil"
)

func TestAccountStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool := testutil.NewTestDB(t)
	store := NewAccountStore(pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO accounts (id, user_id, payload, is_accessible)
		VALUES ($1, $2, $3, $4)
	`, "acc-1", "user-1", "encrypted-payload", true)
	require.NoError(t, err)

	t.Run("finds an existing account", func(t *testing.T) {
		account, err := store.FindAccount(ctx, "acc-1")
		require.NoError(t, err)

		assert.Equal(t, "acc-1", account.ID)
		assert.Equal(t, "user-1", account.UserID)
		assert.Equal(t, "encrypted-payload", account.Payload)
		assert.True(t, account.IsAccessible)
		assert.False(t, account.UpdatedAt.IsZero())
	})

	t.Run("unknown account returns ErrAccountNotFound", func(t *testing.T) {
		_, err := store.FindAccount(ctx, "acc-missing")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}
