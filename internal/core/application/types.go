package application

import (
	"context"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/pkg/errors"
)

type Service interface {
	Start() errors.Error
	Stop()
	ListProperty(ctx context.Context, terms domain.ListingTerms) (*domain.Property, errors.Error)
	BuyShares(ctx context.Context, req BuySharesRequest) (*PurchaseReceipt, errors.Error)
	GetProperty(ctx context.Context, address string) (*domain.Property, errors.Error)
	ListProperties(ctx context.Context, filter PropertyFilter) ([]domain.Property, errors.Error)
	GetPropertyHistory(ctx context.Context, address string) ([]domain.Event, errors.Error)
	GetPosition(
		ctx context.Context, property, owner string,
	) (*domain.InvestorPosition, errors.Error)
	GetPortfolio(ctx context.Context, owner string) (*Portfolio, errors.Error)
	GetAccount(ctx context.Context, address string) (*domain.TokenAccount, errors.Error)
	QuotePurchase(ctx context.Context, property string, shares uint64) (*Quote, errors.Error)
	Audit(ctx context.Context) (*AuditReport, errors.Error)
	Fund(
		ctx context.Context, owner, mint string, amount uint64,
	) (*domain.TokenAccount, errors.Error)
}

// PropertyFilter narrows ListProperties. The zero value lists everything.
type PropertyFilter struct {
	// Marketplace hides entries without a name or with a zero price, which
	// cannot be offered to investors.
	Marketplace bool
}

func (f PropertyFilter) match(p domain.Property) bool {
	if f.Marketplace && (p.Name == "" || p.PricePerLot == 0) {
		return false
	}
	return true
}

type BuySharesRequest struct {
	Property string
	Buyer    string
	Shares   uint64
	// Source defaults to the buyer's associated token account for the
	// property's settlement asset.
	Source string
}

type PurchaseReceipt struct {
	Property    domain.Property
	Position    domain.InvestorPosition
	Source      string
	Cost        uint64
	NewPosition bool
}

type Quote struct {
	Property        string
	Shares          uint64
	SharePrice      uint64
	Cost            uint64
	ExactCost       uint64
	Shortfall       uint64
	AvailableShares uint64
}

type Portfolio struct {
	Owner       string
	Holdings    []domain.Holding
	TotalShares uint64
	TotalValue  uint64
}

const (
	InvariantSharesMatchPositions = "shares_sold_matches_positions"
	InvariantSharesWithinSupply   = "shares_sold_within_supply"
	InvariantVaultBalance         = "vault_balance"
)

type Violation struct {
	Property  string
	Invariant string
	Expected  uint64
	Actual    uint64
}

type AuditReport struct {
	CheckedAt  int64
	Properties int
	Violations []Violation
}

func (r AuditReport) Healthy() bool {
	return len(r.Violations) == 0
}
