package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type accountRepository struct {
	store txStore
}

type accountDTO struct {
	domain.TokenAccount
	StoredAt int64
}

func NewAccountRepository(config ...interface{}) (domain.AccountRepository, error) {
	store, ok, err := sharedStore(config)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("missing ledger store")
	}
	return &accountRepository{txStore{store}}, nil
}

func (r *accountRepository) AddAccount(ctx context.Context, account domain.TokenAccount) error {
	dto := accountDTO{account, time.Now().Unix()}
	if err := r.store.insert(ctx, account.Address, dto); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: account %s", domain.ErrRecordExists, account.Address)
		}
		return fmt.Errorf("failed to add account %s: %w", account.Address, err)
	}
	return nil
}

func (r *accountRepository) GetAccount(
	ctx context.Context, address string,
) (*domain.TokenAccount, error) {
	var dto accountDTO
	if err := r.store.get(ctx, address, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, address)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &dto.TokenAccount, nil
}

func (r *accountRepository) UpdateAccount(ctx context.Context, account domain.TokenAccount) error {
	dto := accountDTO{account, time.Now().Unix()}
	if err := r.store.update(ctx, account.Address, dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, account.Address)
		}
		return fmt.Errorf("failed to update account %s: %w", account.Address, err)
	}
	return nil
}

// Close is a no-op, the store is owned by the property repository.
func (r *accountRepository) Close() {}
