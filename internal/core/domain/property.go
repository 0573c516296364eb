package domain

import (
	"math/bits"
	"unicode/utf8"

	"github.com/solestate/estated/pkg/errors"
)

const (
	MaxNameLen     = MaxSeedLen
	MaxLocationLen = 64
	MaxImageURLLen = 200
)

// ListingTerms are the caller-supplied inputs of a new listing.
type ListingTerms struct {
	Name            string
	Location        string
	ImageURL        string
	PricePerLot     uint64
	TotalShares     uint64
	Issuer          string
	SettlementAsset string
}

func (t ListingTerms) Validate() error {
	if t.TotalShares == 0 {
		return errors.INVALID_TERMS.New("total shares must be greater than zero").
			WithMetadata(errors.ListingMetadata{Name: t.Name, Field: "total_shares"})
	}
	if len(t.Name) == 0 {
		return errors.INVALID_TERMS.New("missing name").
			WithMetadata(errors.ListingMetadata{Field: "name"})
	}
	fields := []struct {
		name   string
		value  string
		maxLen int
	}{
		{"name", t.Name, MaxNameLen},
		{"location", t.Location, MaxLocationLen},
		{"image_url", t.ImageURL, MaxImageURLLen},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return errors.INVALID_TERMS.New("%s is not valid utf-8", f.name).
				WithMetadata(errors.ListingMetadata{Name: t.Name, Field: f.name})
		}
		if len(f.value) > f.maxLen {
			return errors.INVALID_TERMS.New(
				"%s exceeds %d bytes", f.name, f.maxLen,
			).WithMetadata(errors.ListingMetadata{
				Name: t.Name, Field: f.name, Length: len(f.value), MaxLength: f.maxLen,
			})
		}
	}
	if !IsValidKey(t.Issuer) {
		return errors.INVALID_ADDRESS.New("invalid issuer %s", t.Issuer).
			WithMetadata(errors.AddressMetadata{Field: "issuer", Value: t.Issuer})
	}
	if !IsValidKey(t.SettlementAsset) {
		return errors.INVALID_ADDRESS.New("invalid settlement asset %s", t.SettlementAsset).
			WithMetadata(errors.AddressMetadata{Field: "settlement_asset", Value: t.SettlementAsset})
	}
	return nil
}

// Property is the registry entry of a listed asset: immutable sale terms plus
// running totals.
type Property struct {
	Address            string
	Bump               uint8
	Issuer             string
	SettlementAsset    string
	Vault              string
	VaultBump          uint8
	PricePerLot        uint64
	TotalShares        uint64
	SharesSold         uint64
	TotalRentCollected uint64
	Name               string
	Location           string
	ImageURL           string
	CreatedAt          int64
	UpdatedAt          int64
}

// NewProperty validates the terms and derives the property and vault addresses.
func NewProperty(deriver *AddressDeriver, terms ListingTerms, now int64) (*Property, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	address, bump, err := deriver.Property(terms.Name)
	if err != nil {
		return nil, errors.INVALID_TERMS.Wrap(err).
			WithMetadata(errors.ListingMetadata{Name: terms.Name, Field: "name"})
	}
	vault, vaultBump, err := deriver.Vault(address)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	return &Property{
		Address:         address,
		Bump:            bump,
		Issuer:          terms.Issuer,
		SettlementAsset: terms.SettlementAsset,
		Vault:           vault,
		VaultBump:       vaultBump,
		PricePerLot:     terms.PricePerLot,
		TotalShares:     terms.TotalShares,
		Name:            terms.Name,
		Location:        terms.Location,
		ImageURL:        terms.ImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// SharePrice is the truncated price of one share.
func (p *Property) SharePrice() uint64 {
	return p.PricePerLot / p.TotalShares
}

func (p *Property) AvailableShares() uint64 {
	return p.TotalShares - p.SharesSold
}

func (p *Property) IsSoldOut() bool {
	return p.SharesSold >= p.TotalShares
}

// PurchaseCost is what a purchase of shares charges: the share price is
// truncated first, then multiplied, so every purchase rounds independently.
func (p *Property) PurchaseCost(shares uint64) (uint64, error) {
	return CheckedMul("purchase_cost", p.SharePrice(), shares)
}

// ExactCost is the proportional cost pricePerLot*shares/totalShares computed
// with a 128-bit intermediate product, truncated once.
func (p *Property) ExactCost(shares uint64) (uint64, error) {
	hi, lo := bits.Mul64(p.PricePerLot, shares)
	if hi >= p.TotalShares {
		return 0, errors.ARITHMETIC_OVERFLOW.New("exact cost does not fit in 64 bits").
			WithMetadata(errors.OverflowMetadata{
				Operation: "exact_cost", Left: p.PricePerLot, Right: shares,
			})
	}
	quo, _ := bits.Div64(hi, lo, p.TotalShares)
	return quo, nil
}

// ExpectedVaultBalance is the settlement balance the vault must hold for the
// shares sold so far.
func (p *Property) ExpectedVaultBalance() (uint64, error) {
	return CheckedMul("vault_balance", p.SharePrice(), p.SharesSold)
}

// ValidatePurchase checks that shares can be sold without exceeding supply.
func (p *Property) ValidatePurchase(shares uint64) error {
	md := errors.OversoldMetadata{
		Property:    p.Address,
		Requested:   shares,
		SharesSold:  p.SharesSold,
		TotalShares: p.TotalShares,
	}
	if shares == 0 {
		return errors.INVALID_SHARES_AMOUNT.New("shares amount must be greater than zero").
			WithMetadata(md)
	}
	sold, err := CheckedAdd("shares_sold", p.SharesSold, shares)
	if err != nil {
		return err
	}
	if sold > p.TotalShares {
		return errors.OVERSOLD.New(
			"requested %d shares but only %d available", shares, p.AvailableShares(),
		).WithMetadata(md)
	}
	return nil
}

// Sell records shares as sold.
func (p *Property) Sell(shares uint64, now int64) error {
	if err := p.ValidatePurchase(shares); err != nil {
		return err
	}
	p.SharesSold += shares
	p.UpdatedAt = now
	return nil
}
