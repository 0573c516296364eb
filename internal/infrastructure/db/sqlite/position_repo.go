package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/infrastructure/db/sqlite/sqlc/queries"
)

type positionRepository struct {
	db      *sql.DB
	querier *queries.Queries
}

func NewPositionRepository(config ...interface{}) (domain.PositionRepository, error) {
	db, err := parseDb(config, "position")
	if err != nil {
		return nil, err
	}
	return &positionRepository{
		db:      db,
		querier: queries.New(db),
	}, nil
}

func (r *positionRepository) AddPosition(ctx context.Context, p domain.InvestorPosition) error {
	rows, err := querier(ctx, r.querier).InsertPosition(ctx, queries.InsertPositionParams{
		Address:      p.Address,
		Bump:         int64(p.Bump),
		Owner:        p.Owner,
		Property:     p.Property,
		SharesOwned:  int64(p.SharesOwned),
		TotalClaimed: int64(p.TotalClaimed),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to add position %s: %w", p.Address, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: position %s", domain.ErrRecordExists, p.Address)
	}
	return nil
}

func (r *positionRepository) GetPosition(
	ctx context.Context, address string,
) (*domain.InvestorPosition, error) {
	row, err := querier(ctx, r.querier).SelectPosition(ctx, address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPositionNotFound, address)
		}
		return nil, fmt.Errorf("failed to get position %s: %w", address, err)
	}
	position := toPosition(row)
	return &position, nil
}

func (r *positionRepository) UpdatePosition(ctx context.Context, p domain.InvestorPosition) error {
	rows, err := querier(ctx, r.querier).UpdatePositionTotals(
		ctx, queries.UpdatePositionTotalsParams{
			SharesOwned:  int64(p.SharesOwned),
			TotalClaimed: int64(p.TotalClaimed),
			UpdatedAt:    p.UpdatedAt,
			Address:      p.Address,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update position %s: %w", p.Address, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrPositionNotFound, p.Address)
	}
	return nil
}

func (r *positionRepository) ListPositionsByOwner(
	ctx context.Context, owner string,
) ([]domain.InvestorPosition, error) {
	rows, err := querier(ctx, r.querier).SelectPositionsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions of %s: %w", owner, err)
	}
	return toPositions(rows), nil
}

func (r *positionRepository) ListPositionsByProperty(
	ctx context.Context, property string,
) ([]domain.InvestorPosition, error) {
	rows, err := querier(ctx, r.querier).SelectPositionsByProperty(ctx, property)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions in %s: %w", property, err)
	}
	return toPositions(rows), nil
}

func (r *positionRepository) Close() {
	// nolint:all
	r.db.Close()
}

func toPositions(rows []queries.InvestorPosition) []domain.InvestorPosition {
	positions := make([]domain.InvestorPosition, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, toPosition(row))
	}
	return positions
}

func toPosition(row queries.InvestorPosition) domain.InvestorPosition {
	return domain.InvestorPosition{
		Address:      row.Address,
		Bump:         uint8(row.Bump),
		Owner:        row.Owner,
		Property:     row.Property,
		SharesOwned:  uint64(row.SharesOwned),
		TotalClaimed: uint64(row.TotalClaimed),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
