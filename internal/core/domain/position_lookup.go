package domain

import (
	"context"
	"errors"
)

// GetOrCreatePosition resolves the position of owner in property. A missing
// position is returned as a fresh, unsaved record at its derived address.
func GetOrCreatePosition(
	ctx context.Context, repo PositionRepository, deriver *AddressDeriver,
	property, owner string, now int64,
) (PositionLookup, error) {
	address, bump, err := deriver.Position(property, owner)
	if err != nil {
		return PositionLookup{}, err
	}

	position, err := repo.GetPosition(ctx, address)
	if err == nil {
		return PositionLookup{Position: position}, nil
	}
	if !errors.Is(err, ErrPositionNotFound) {
		return PositionLookup{}, err
	}

	return PositionLookup{
		Position: NewInvestorPosition(address, bump, owner, property, now),
		Fresh:    true,
	}, nil
}

// SavePosition inserts fresh positions and updates existing ones.
func SavePosition(ctx context.Context, repo PositionRepository, lookup PositionLookup) error {
	if lookup.Fresh {
		return repo.AddPosition(ctx, *lookup.Position)
	}
	return repo.UpdatePosition(ctx, *lookup.Position)
}
