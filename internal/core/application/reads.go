package application

import (
	"context"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/pkg/errors"
)

func (s *service) GetProperty(
	ctx context.Context, address string,
) (*domain.Property, errors.Error) {
	if !domain.IsValidKey(address) {
		return nil, errors.INVALID_ADDRESS.New("invalid property %s", address).
			WithMetadata(errors.AddressMetadata{Field: "property", Value: address})
	}
	property, err := s.repoManager.Properties().GetProperty(ctx, address)
	if err != nil {
		return nil, toError(propertyNotFound(address, err))
	}
	return property, nil
}

func (s *service) ListProperties(
	ctx context.Context, filter PropertyFilter,
) ([]domain.Property, errors.Error) {
	properties, err := s.repoManager.Properties().ListProperties(ctx)
	if err != nil {
		return nil, toError(err)
	}

	matching := make([]domain.Property, 0, len(properties))
	for _, p := range properties {
		if filter.match(p) {
			matching = append(matching, p)
		}
	}
	return matching, nil
}

func (s *service) GetPropertyHistory(
	ctx context.Context, address string,
) ([]domain.Event, errors.Error) {
	if _, err := s.GetProperty(ctx, address); err != nil {
		return nil, err
	}
	events, err := s.repoManager.Events().ListEvents(ctx, domain.PropertyTopic, address)
	if err != nil {
		return nil, toError(err)
	}
	return events, nil
}

func (s *service) GetPosition(
	ctx context.Context, property, owner string,
) (*domain.InvestorPosition, errors.Error) {
	if !domain.IsValidKey(owner) {
		return nil, errors.INVALID_ADDRESS.New("invalid owner %s", owner).
			WithMetadata(errors.AddressMetadata{Field: "owner", Value: owner})
	}
	if _, err := s.GetProperty(ctx, property); err != nil {
		return nil, err
	}

	address, _, err := s.deriver.Position(property, owner)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	position, err := s.repoManager.Positions().GetPosition(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			return nil, errors.POSITION_NOT_FOUND.New(
				"%s holds no shares of %s", owner, property,
			).WithMetadata(errors.PositionMetadata{Property: property, Owner: owner})
		}
		return nil, toError(err)
	}
	return position, nil
}

func (s *service) GetPortfolio(ctx context.Context, owner string) (*Portfolio, errors.Error) {
	if !domain.IsValidKey(owner) {
		return nil, errors.INVALID_ADDRESS.New("invalid owner %s", owner).
			WithMetadata(errors.AddressMetadata{Field: "owner", Value: owner})
	}

	positions, err := s.repoManager.Positions().ListPositionsByOwner(ctx, owner)
	if err != nil {
		return nil, toError(err)
	}

	portfolio := &Portfolio{Owner: owner, Holdings: make([]domain.Holding, 0, len(positions))}
	for _, position := range positions {
		property, err := s.repoManager.Properties().GetProperty(ctx, position.Property)
		if err != nil {
			return nil, toError(propertyNotFound(position.Property, err))
		}
		holding := domain.Holding{Position: position, Property: *property}
		value, err := holding.Value()
		if err != nil {
			return nil, toError(err)
		}

		if portfolio.TotalShares, err = domain.CheckedAdd(
			"portfolio_shares", portfolio.TotalShares, position.SharesOwned,
		); err != nil {
			return nil, toError(err)
		}
		if portfolio.TotalValue, err = domain.CheckedAdd(
			"portfolio_value", portfolio.TotalValue, value,
		); err != nil {
			return nil, toError(err)
		}
		portfolio.Holdings = append(portfolio.Holdings, holding)
	}
	return portfolio, nil
}

func (s *service) GetAccount(
	ctx context.Context, address string,
) (*domain.TokenAccount, errors.Error) {
	if !domain.IsValidKey(address) {
		return nil, errors.INVALID_ADDRESS.New("invalid account %s", address).
			WithMetadata(errors.AddressMetadata{Field: "account", Value: address})
	}
	account, err := s.ledger.GetAccount(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, errors.ACCOUNT_NOT_FOUND.New("account %s not found", address).
				WithMetadata(errors.AccountMetadata{Account: address})
		}
		return nil, toError(err)
	}
	return account, nil
}

// QuotePurchase prices a purchase without applying it. Cost is what BuyShares
// would charge; Shortfall is how much less than the exact proportional price
// that is, due to the share price being truncated before multiplying.
func (s *service) QuotePurchase(
	ctx context.Context, address string, shares uint64,
) (*Quote, errors.Error) {
	property, serr := s.GetProperty(ctx, address)
	if serr != nil {
		return nil, serr
	}
	if err := property.ValidatePurchase(shares); err != nil {
		return nil, toError(err)
	}

	cost, err := property.PurchaseCost(shares)
	if err != nil {
		return nil, toError(err)
	}
	exact, err := property.ExactCost(shares)
	if err != nil {
		return nil, toError(err)
	}

	return &Quote{
		Property:        property.Address,
		Shares:          shares,
		SharePrice:      property.SharePrice(),
		Cost:            cost,
		ExactCost:       exact,
		Shortfall:       exact - cost,
		AvailableShares: property.AvailableShares(),
	}, nil
}
