package domain_test

import (
	"math"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/pkg/errors"
	"github.com/stretchr/testify/require"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func newKey() string {
	return solana.NewWallet().PublicKey().String()
}

func newDeriver(t *testing.T) *domain.AddressDeriver {
	deriver, err := domain.NewAddressDeriver("")
	require.NoError(t, err)
	return deriver
}

func validTerms() domain.ListingTerms {
	return domain.ListingTerms{
		Name:            "Villa Lisboa",
		Location:        "Lisbon, PT",
		ImageURL:        "https://example.com/villa.png",
		PricePerLot:     1_000_000,
		TotalShares:     1000,
		Issuer:          newKey(),
		SettlementAsset: usdcMint,
	}
}

func TestAddressDerivation(t *testing.T) {
	deriver := newDeriver(t)
	require.Equal(t, domain.DefaultProgramID, deriver.ProgramID())

	t.Run("property address is a function of the name", func(t *testing.T) {
		a1, b1, err := deriver.Property("Villa")
		require.NoError(t, err)
		a2, b2, err := deriver.Property("Villa")
		require.NoError(t, err)
		a3, _, err := deriver.Property("Villa 2")
		require.NoError(t, err)

		require.Equal(t, a1, a2)
		require.Equal(t, b1, b2)
		require.NotEqual(t, a1, a3)
	})

	t.Run("vault and position depend on their keys", func(t *testing.T) {
		property, _, err := deriver.Property("Villa")
		require.NoError(t, err)

		vault, _, err := deriver.Vault(property)
		require.NoError(t, err)
		require.NotEqual(t, property, vault)

		alice, bob := newKey(), newKey()
		pa, _, err := deriver.Position(property, alice)
		require.NoError(t, err)
		pa2, _, err := deriver.Position(property, alice)
		require.NoError(t, err)
		pb, _, err := deriver.Position(property, bob)
		require.NoError(t, err)

		require.Equal(t, pa, pa2)
		require.NotEqual(t, pa, pb)
	})

	t.Run("other program ids derive other addresses", func(t *testing.T) {
		other, err := domain.NewAddressDeriver(newKey())
		require.NoError(t, err)

		a1, _, err := deriver.Property("Villa")
		require.NoError(t, err)
		a2, _, err := other.Property("Villa")
		require.NoError(t, err)
		require.NotEqual(t, a1, a2)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := domain.NewAddressDeriver("not-a-key")
		require.Error(t, err)

		_, _, err = deriver.Property(strings.Repeat("x", domain.MaxSeedLen+1))
		require.Error(t, err)

		_, _, err = deriver.Vault("nope")
		require.Error(t, err)

		_, _, err = deriver.Position(newKey(), "nope")
		require.Error(t, err)
	})

	t.Run("associated token account", func(t *testing.T) {
		owner := newKey()
		ata, err := domain.AssociatedTokenAccount(owner, usdcMint)
		require.NoError(t, err)
		require.True(t, domain.IsValidKey(ata))

		again, err := domain.AssociatedTokenAccount(owner, usdcMint)
		require.NoError(t, err)
		require.Equal(t, ata, again)
	})
}

func TestListingTerms(t *testing.T) {
	require.NoError(t, validTerms().Validate())

	fixtures := []struct {
		name   string
		mutate func(*domain.ListingTerms)
		code   uint16
	}{
		{"zero shares", func(t *domain.ListingTerms) { t.TotalShares = 0 }, errors.INVALID_TERMS.Code},
		{"empty name", func(t *domain.ListingTerms) { t.Name = "" }, errors.INVALID_TERMS.Code},
		{
			"name too long",
			func(t *domain.ListingTerms) { t.Name = strings.Repeat("a", domain.MaxNameLen+1) },
			errors.INVALID_TERMS.Code,
		},
		{
			"location too long",
			func(t *domain.ListingTerms) { t.Location = strings.Repeat("a", domain.MaxLocationLen+1) },
			errors.INVALID_TERMS.Code,
		},
		{
			"image url too long",
			func(t *domain.ListingTerms) { t.ImageURL = strings.Repeat("a", domain.MaxImageURLLen+1) },
			errors.INVALID_TERMS.Code,
		},
		{"invalid utf8", func(t *domain.ListingTerms) { t.Location = "\xff\xfe" }, errors.INVALID_TERMS.Code},
		{"bad issuer", func(t *domain.ListingTerms) { t.Issuer = "issuer" }, errors.INVALID_ADDRESS.Code},
		{
			"bad settlement asset",
			func(t *domain.ListingTerms) { t.SettlementAsset = "" },
			errors.INVALID_ADDRESS.Code,
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			terms := validTerms()
			f.mutate(&terms)

			err := terms.Validate()
			require.Error(t, err)
			var typed errors.Error
			require.ErrorAs(t, err, &typed)
			require.Equal(t, f.code, typed.Code())
		})
	}

	t.Run("bounds are inclusive", func(t *testing.T) {
		terms := validTerms()
		terms.Name = strings.Repeat("n", domain.MaxNameLen)
		terms.Location = strings.Repeat("l", domain.MaxLocationLen)
		terms.ImageURL = strings.Repeat("i", domain.MaxImageURLLen)
		require.NoError(t, terms.Validate())
	})
}

func TestProperty(t *testing.T) {
	deriver := newDeriver(t)

	t.Run("new property", func(t *testing.T) {
		terms := validTerms()
		property, err := domain.NewProperty(deriver, terms, 10)
		require.NoError(t, err)

		address, bump, err := deriver.Property(terms.Name)
		require.NoError(t, err)
		vault, _, err := deriver.Vault(address)
		require.NoError(t, err)

		require.Equal(t, address, property.Address)
		require.Equal(t, bump, property.Bump)
		require.Equal(t, vault, property.Vault)
		require.Zero(t, property.SharesSold)
		require.Zero(t, property.TotalRentCollected)
		require.Equal(t, terms.Issuer, property.Issuer)
		require.Equal(t, terms.SettlementAsset, property.SettlementAsset)
		require.Equal(t, int64(10), property.CreatedAt)
	})

	t.Run("pricing truncates before multiplying", func(t *testing.T) {
		property := &domain.Property{PricePerLot: 1_000_000, TotalShares: 1000}
		cost, err := property.PurchaseCost(3)
		require.NoError(t, err)
		require.Equal(t, uint64(3000), cost)

		property = &domain.Property{PricePerLot: 1000, TotalShares: 3}
		cost, err = property.PurchaseCost(3)
		require.NoError(t, err)
		require.Equal(t, uint64(999), cost)

		exact, err := property.ExactCost(3)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), exact)
	})

	t.Run("exact cost uses a wide intermediate", func(t *testing.T) {
		property := &domain.Property{PricePerLot: math.MaxUint64, TotalShares: 4}
		exact, err := property.ExactCost(2)
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64/2), exact)
	})

	t.Run("purchase cost overflow", func(t *testing.T) {
		property := &domain.Property{PricePerLot: math.MaxUint64, TotalShares: 1}
		_, err := property.PurchaseCost(2)
		require.True(t, errors.ARITHMETIC_OVERFLOW.Is(err))
	})

	t.Run("sell", func(t *testing.T) {
		property := &domain.Property{Address: "p", PricePerLot: 100, TotalShares: 10, SharesSold: 9}

		err := property.Sell(2, 1)
		require.True(t, errors.OVERSOLD.Is(err))
		require.Equal(t, uint64(9), property.SharesSold)

		err = property.Sell(0, 1)
		require.True(t, errors.INVALID_SHARES_AMOUNT.Is(err))

		require.NoError(t, property.Sell(1, 1))
		require.Equal(t, uint64(10), property.SharesSold)
		require.True(t, property.IsSoldOut())
		require.Zero(t, property.AvailableShares())
	})

	t.Run("sell overflow", func(t *testing.T) {
		property := &domain.Property{TotalShares: math.MaxUint64, SharesSold: math.MaxUint64 - 1}
		err := property.Sell(2, 1)
		require.True(t, errors.ARITHMETIC_OVERFLOW.Is(err))
		require.Equal(t, uint64(math.MaxUint64-1), property.SharesSold)
	})
}

func TestCheckedArithmetic(t *testing.T) {
	sum, err := domain.CheckedAdd("add", 1, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(3), sum)

	_, err = domain.CheckedAdd("add", math.MaxUint64, 1)
	require.True(t, errors.ARITHMETIC_OVERFLOW.Is(err))

	_, err = domain.CheckedSub("sub", 1, 2)
	require.True(t, errors.ARITHMETIC_OVERFLOW.Is(err))

	product, err := domain.CheckedMul("mul", 1<<32-1, 1<<32)
	require.NoError(t, err)
	require.Equal(t, uint64(1<<64-1<<32), product)

	_, err = domain.CheckedMul("mul", 1<<32, 1<<32)
	require.True(t, errors.ARITHMETIC_OVERFLOW.Is(err))
}
