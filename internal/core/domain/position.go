package domain

import "github.com/solestate/estated/pkg/errors"

// InvestorPosition is one investor's cumulative stake in one property.
type InvestorPosition struct {
	Address      string
	Bump         uint8
	Owner        string
	Property     string
	SharesOwned  uint64
	TotalClaimed uint64
	CreatedAt    int64
	UpdatedAt    int64
}

// PositionLookup is the result of a get-or-create: either the stored position
// or a fresh default-initialized one that has not been persisted yet.
type PositionLookup struct {
	Position *InvestorPosition
	Fresh    bool
}

func NewInvestorPosition(
	address string, bump uint8, owner, property string, now int64,
) *InvestorPosition {
	return &InvestorPosition{
		Address:   address,
		Bump:      bump,
		Owner:     owner,
		Property:  property,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds purchased shares to the position.
func (p *InvestorPosition) Credit(shares uint64, now int64) error {
	owned, err := CheckedAdd("shares_owned", p.SharesOwned, shares)
	if err != nil {
		return err
	}
	p.SharesOwned = owned
	p.UpdatedAt = now
	return nil
}

// Holding pairs a position with the property it refers to.
type Holding struct {
	Position InvestorPosition
	Property Property
}

// Value is the settlement amount paid for the held shares at the property's
// share price.
func (h Holding) Value() (uint64, error) {
	// Listing rejects zero shares, so a stored record without any is corrupt.
	if h.Property.TotalShares == 0 {
		return 0, errors.INTERNAL_ERROR.New(
			"corrupt property record %s: zero total shares", h.Property.Address,
		)
	}
	return h.Property.PurchaseCost(h.Position.SharesOwned)
}
