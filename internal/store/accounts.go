package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vdavid/mailsift/internal/models"
)

// ErrAccountNotFound is returned when no account exists for the given id.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore looks up mailbox accounts.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates an AccountStore over the given pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// FindAccount returns the account with the given id, or ErrAccountNotFound.
func (s *AccountStore) FindAccount(ctx context.Context, accountID string) (*models.Account, error) {
	account := &models.Account{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, payload, is_accessible, updated_at
		FROM accounts
		WHERE id = $1
	`, accountID).Scan(&account.ID, &account.UserID, &account.Payload, &account.IsAccessible, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account %s: %w", accountID, err)
	}
	return account, nil
}
