package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/infrastructure/db/postgres/sqlc/queries"
)

type propertyRepository struct {
	db      *sql.DB
	querier *queries.Queries
}

func NewPropertyRepository(config ...interface{}) (domain.PropertyRepository, error) {
	db, err := parseDb(config, "property")
	if err != nil {
		return nil, err
	}
	return &propertyRepository{
		db:      db,
		querier: queries.New(db),
	}, nil
}

func (r *propertyRepository) AddProperty(ctx context.Context, p domain.Property) error {
	rows, err := withTx(ctx, r.querier).InsertProperty(ctx, queries.InsertPropertyParams{
		Address:            p.Address,
		Bump:               int64(p.Bump),
		Issuer:             p.Issuer,
		SettlementAsset:    p.SettlementAsset,
		Vault:              p.Vault,
		VaultBump:          int64(p.VaultBump),
		PricePerLot:        int64(p.PricePerLot),
		TotalShares:        int64(p.TotalShares),
		SharesSold:         int64(p.SharesSold),
		TotalRentCollected: int64(p.TotalRentCollected),
		Name:               p.Name,
		Location:           p.Location,
		ImageUrl:           p.ImageURL,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to add property %s: %w", p.Address, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: property %s", domain.ErrRecordExists, p.Address)
	}
	return nil
}

func (r *propertyRepository) GetProperty(
	ctx context.Context, address string,
) (*domain.Property, error) {
	q, lock := querier(ctx, r.querier)
	selectProperty := q.SelectProperty
	if lock {
		selectProperty = q.SelectPropertyForUpdate
	}
	row, err := selectProperty(ctx, address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, address)
		}
		return nil, fmt.Errorf("failed to get property %s: %w", address, err)
	}
	property := toProperty(row)
	return &property, nil
}

func (r *propertyRepository) UpdateProperty(ctx context.Context, p domain.Property) error {
	rows, err := withTx(ctx, r.querier).UpdatePropertyTotals(
		ctx, queries.UpdatePropertyTotalsParams{
			SharesSold:         int64(p.SharesSold),
			TotalRentCollected: int64(p.TotalRentCollected),
			UpdatedAt:          p.UpdatedAt,
			Address:            p.Address,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update property %s: %w", p.Address, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, p.Address)
	}
	return nil
}

func (r *propertyRepository) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := withTx(ctx, r.querier).SelectAllProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	properties := make([]domain.Property, 0, len(rows))
	for _, row := range rows {
		properties = append(properties, toProperty(row))
	}
	return properties, nil
}

func (r *propertyRepository) Close() {
	// nolint:all
	r.db.Close()
}

func toProperty(row queries.Property) domain.Property {
	return domain.Property{
		Address:            row.Address,
		Bump:               uint8(row.Bump),
		Issuer:             row.Issuer,
		SettlementAsset:    row.SettlementAsset,
		Vault:              row.Vault,
		VaultBump:          uint8(row.VaultBump),
		PricePerLot:        uint64(row.PricePerLot),
		TotalShares:        uint64(row.TotalShares),
		SharesSold:         uint64(row.SharesSold),
		TotalRentCollected: uint64(row.TotalRentCollected),
		Name:               row.Name,
		Location:           row.Location,
		ImageURL:           row.ImageUrl,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}
