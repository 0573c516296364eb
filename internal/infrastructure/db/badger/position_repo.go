package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type positionRepository struct {
	store txStore
}

type positionDTO struct {
	domain.InvestorPosition
	StoredAt int64
}

// NewPositionRepository expects (baseDir, logger, store) where store is the
// ledger store opened by NewPropertyRepository.
func NewPositionRepository(config ...interface{}) (domain.PositionRepository, error) {
	store, ok, err := sharedStore(config)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("missing ledger store")
	}
	return &positionRepository{txStore{store}}, nil
}

func (r *positionRepository) AddPosition(
	ctx context.Context, position domain.InvestorPosition,
) error {
	dto := positionDTO{position, time.Now().Unix()}
	if err := r.store.insert(ctx, position.Address, dto); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: position %s", domain.ErrRecordExists, position.Address)
		}
		return fmt.Errorf("failed to add position %s: %w", position.Address, err)
	}
	return nil
}

func (r *positionRepository) GetPosition(
	ctx context.Context, address string,
) (*domain.InvestorPosition, error) {
	var dto positionDTO
	if err := r.store.get(ctx, address, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPositionNotFound, address)
		}
		return nil, fmt.Errorf("failed to get position %s: %w", address, err)
	}
	return &dto.InvestorPosition, nil
}

func (r *positionRepository) UpdatePosition(
	ctx context.Context, position domain.InvestorPosition,
) error {
	dto := positionDTO{position, time.Now().Unix()}
	if err := r.store.update(ctx, position.Address, dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrPositionNotFound, position.Address)
		}
		return fmt.Errorf("failed to update position %s: %w", position.Address, err)
	}
	return nil
}

func (r *positionRepository) ListPositionsByOwner(
	ctx context.Context, owner string,
) ([]domain.InvestorPosition, error) {
	return r.findPositions(ctx, badgerhold.Where("Owner").Eq(owner))
}

func (r *positionRepository) ListPositionsByProperty(
	ctx context.Context, property string,
) ([]domain.InvestorPosition, error) {
	return r.findPositions(ctx, badgerhold.Where("Property").Eq(property))
}

func (r *positionRepository) findPositions(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.InvestorPosition, error) {
	var dtos []positionDTO
	if err := r.store.find(ctx, &dtos, query); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	positions := make([]domain.InvestorPosition, 0, len(dtos))
	for _, dto := range dtos {
		positions = append(positions, dto.InvestorPosition)
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].CreatedAt < positions[j].CreatedAt
	})
	return positions, nil
}

// Close is a no-op, the store is owned by the property repository.
func (r *positionRepository) Close() {}
