package domain_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/pkg/errors"
	"github.com/stretchr/testify/require"
)

type positionRepo struct {
	domain.PositionRepository
	lock      sync.Mutex
	positions map[string]domain.InvestorPosition
	added     int
	updated   int
}

func newPositionRepo() *positionRepo {
	return &positionRepo{positions: make(map[string]domain.InvestorPosition)}
}

func (r *positionRepo) AddPosition(_ context.Context, p domain.InvestorPosition) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.positions[p.Address]; ok {
		return domain.ErrRecordExists
	}
	r.positions[p.Address] = p
	r.added++
	return nil
}

func (r *positionRepo) UpdatePosition(_ context.Context, p domain.InvestorPosition) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.positions[p.Address]; !ok {
		return domain.ErrPositionNotFound
	}
	r.positions[p.Address] = p
	r.updated++
	return nil
}

func (r *positionRepo) GetPosition(
	_ context.Context, address string,
) (*domain.InvestorPosition, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	p, ok := r.positions[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPositionNotFound, address)
	}
	return &p, nil
}

func TestGetOrCreatePosition(t *testing.T) {
	ctx := context.Background()
	deriver := newDeriver(t)
	repo := newPositionRepo()

	property, _, err := deriver.Property("Villa")
	require.NoError(t, err)
	owner := newKey()

	lookup, err := domain.GetOrCreatePosition(ctx, repo, deriver, property, owner, 1)
	require.NoError(t, err)
	require.True(t, lookup.Fresh)
	require.Equal(t, owner, lookup.Position.Owner)
	require.Equal(t, property, lookup.Position.Property)
	require.Zero(t, lookup.Position.SharesOwned)
	require.Zero(t, lookup.Position.TotalClaimed)

	require.NoError(t, lookup.Position.Credit(3, 1))
	require.NoError(t, domain.SavePosition(ctx, repo, lookup))

	lookup, err = domain.GetOrCreatePosition(ctx, repo, deriver, property, owner, 2)
	require.NoError(t, err)
	require.False(t, lookup.Fresh)
	require.Equal(t, uint64(3), lookup.Position.SharesOwned)

	require.NoError(t, lookup.Position.Credit(4, 2))
	require.NoError(t, domain.SavePosition(ctx, repo, lookup))

	require.Len(t, repo.positions, 1)
	require.Equal(t, 1, repo.added)
	require.Equal(t, 1, repo.updated)
	require.Equal(t, uint64(7), repo.positions[lookup.Position.Address].SharesOwned)
	require.Equal(t, int64(1), repo.positions[lookup.Position.Address].CreatedAt)
}

func TestPositionCreditOverflow(t *testing.T) {
	position := &domain.InvestorPosition{SharesOwned: math.MaxUint64}
	err := position.Credit(1, 1)
	require.True(t, errors.ARITHMETIC_OVERFLOW.Is(err))
	require.Equal(t, uint64(math.MaxUint64), position.SharesOwned)
}

func TestTokenAccount(t *testing.T) {
	account := domain.NewTokenAccount("acc", usdcMint, "owner", 1)

	require.NoError(t, account.Credit(100, 2))
	require.Equal(t, uint64(100), account.Amount)

	err := account.Debit(101, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	require.Equal(t, uint64(100), account.Amount)

	require.NoError(t, account.Debit(100, 4))
	require.Zero(t, account.Amount)
	require.Equal(t, int64(4), account.UpdatedAt)

	account.Amount = math.MaxUint64
	err = account.Credit(1, 5)
	require.True(t, errors.ARITHMETIC_OVERFLOW.Is(err))
}

func TestHoldingValue(t *testing.T) {
	holding := domain.Holding{
		Position: domain.InvestorPosition{SharesOwned: 3},
		Property: domain.Property{PricePerLot: 1_000_000, TotalShares: 1000},
	}
	value, err := holding.Value()
	require.NoError(t, err)
	require.Equal(t, uint64(3000), value)

	holding.Property.TotalShares = 0
	_, err = holding.Value()
	require.True(t, errors.INTERNAL_ERROR.Is(err))
}
