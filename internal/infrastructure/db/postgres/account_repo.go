package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/infrastructure/db/postgres/sqlc/queries"
)

type accountRepository struct {
	db      *sql.DB
	querier *queries.Queries
}

func NewAccountRepository(config ...interface{}) (domain.AccountRepository, error) {
	db, err := parseDb(config, "account")
	if err != nil {
		return nil, err
	}
	return &accountRepository{
		db:      db,
		querier: queries.New(db),
	}, nil
}

func (r *accountRepository) AddAccount(ctx context.Context, a domain.TokenAccount) error {
	rows, err := withTx(ctx, r.querier).InsertAccount(ctx, queries.InsertAccountParams{
		Address:   a.Address,
		Mint:      a.Mint,
		Owner:     a.Owner,
		Amount:    int64(a.Amount),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to add account %s: %w", a.Address, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: account %s", domain.ErrRecordExists, a.Address)
	}
	return nil
}

func (r *accountRepository) GetAccount(
	ctx context.Context, address string,
) (*domain.TokenAccount, error) {
	q, lock := querier(ctx, r.querier)
	selectAccount := q.SelectAccount
	if lock {
		selectAccount = q.SelectAccountForUpdate
	}
	row, err := selectAccount(ctx, address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, address)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &domain.TokenAccount{
		Address:   row.Address,
		Mint:      row.Mint,
		Owner:     row.Owner,
		Amount:    uint64(row.Amount),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *accountRepository) UpdateAccount(ctx context.Context, a domain.TokenAccount) error {
	rows, err := withTx(ctx, r.querier).UpdateAccountAmount(
		ctx, queries.UpdateAccountAmountParams{
			Amount:    int64(a.Amount),
			UpdatedAt: a.UpdatedAt,
			Address:   a.Address,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", a.Address, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, a.Address)
	}
	return nil
}

func (r *accountRepository) Close() {
	// nolint:all
	r.db.Close()
}
