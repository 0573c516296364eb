package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/solestate/estated/internal/core/application"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
	"github.com/solestate/estated/internal/infrastructure/db"
	"github.com/solestate/estated/internal/infrastructure/ledger"
	inmemorysequencer "github.com/solestate/estated/internal/infrastructure/sequencer/inmemory"
	"github.com/solestate/estated/pkg/errors"
	"github.com/stretchr/testify/require"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func newKey() string {
	return solana.NewWallet().PublicKey().String()
}

type env struct {
	svc         application.Service
	repoManager ports.RepoManager
	ledger      ports.TokenLedger
}

func newEnv(t *testing.T, wrap func(ports.RepoManager) ports.RepoManager, opts ...application.Option) env {
	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)
	if wrap != nil {
		repoManager = wrap(repoManager)
	}

	deriver, err := domain.NewAddressDeriver("")
	require.NoError(t, err)

	tokenLedger := ledger.NewService(repoManager.Accounts())
	opts = append(opts, application.WithFaucet())
	svc, err := application.NewService(
		repoManager, tokenLedger, inmemorysequencer.NewSequencer(), deriver, opts...,
	)
	require.NoError(t, err)
	require.Nil(t, svc.Start())
	t.Cleanup(svc.Stop)

	return env{svc, repoManager, tokenLedger}
}

func terms(name string, pricePerLot, totalShares uint64) domain.ListingTerms {
	return domain.ListingTerms{
		Name:            name,
		Location:        "Lisbon",
		ImageURL:        "https://example.com/house.png",
		PricePerLot:     pricePerLot,
		TotalShares:     totalShares,
		Issuer:          newKey(),
		SettlementAsset: usdcMint,
	}
}

func fundedBuyer(t *testing.T, e env, amount uint64) string {
	buyer := newKey()
	_, err := e.svc.Fund(context.Background(), buyer, usdcMint, amount)
	require.Nil(t, err)
	return buyer
}

func requireCode[MT any](t *testing.T, code errors.Code[MT], err errors.Error) {
	t.Helper()
	require.NotNil(t, err)
	require.Equal(t, code.Code, err.Code(), err.Error())
}

func TestListProperty(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	var listed *domain.Property
	t.Run("valid", func(t *testing.T) {
		property, err := e.svc.ListProperty(ctx, terms("Villa Rosa", 1_000_000, 1000))
		require.Nil(t, err)
		require.Zero(t, property.SharesSold)
		listed = property
		require.Zero(t, property.TotalRentCollected)

		deriver, derr := domain.NewAddressDeriver("")
		require.NoError(t, derr)
		address, _, derr := deriver.Property("Villa Rosa")
		require.NoError(t, derr)
		require.Equal(t, address, property.Address)

		vault, err := e.svc.GetAccount(ctx, property.Vault)
		require.Nil(t, err)
		require.Zero(t, vault.Amount)
		require.Equal(t, usdcMint, vault.Mint)
		require.Equal(t, property.Vault, vault.Owner)

		history, err := e.svc.GetPropertyHistory(ctx, property.Address)
		require.Nil(t, err)
		require.Len(t, history, 1)
		require.Equal(t, domain.EventTypePropertyListed, history[0].GetType())
	})

	t.Run("invalid", func(t *testing.T) {
		require.NotNil(t, listed)
		_, err := e.svc.ListProperty(ctx, terms("Villa Rosa", 5, 10))
		requireCode(t, errors.DUPLICATE_LISTING, err)

		got, err := e.svc.GetProperty(ctx, listed.Address)
		require.Nil(t, err)
		require.Equal(t, listed.PricePerLot, got.PricePerLot)
		require.Equal(t, listed.TotalShares, got.TotalShares)
		require.Equal(t, listed.Issuer, got.Issuer)
		require.Equal(t, listed.Vault, got.Vault)
		require.Equal(t, listed.CreatedAt, got.CreatedAt)

		vault, err := e.svc.GetAccount(ctx, listed.Vault)
		require.Nil(t, err)
		require.Equal(t, usdcMint, vault.Mint)
		require.Zero(t, vault.Amount)

		_, err = e.svc.ListProperty(ctx, terms("Empty", 1_000, 0))
		requireCode(t, errors.INVALID_TERMS, err)

		_, err = e.svc.ListProperty(ctx, terms("", 1_000, 10))
		requireCode(t, errors.INVALID_TERMS, err)

		_, err = e.svc.ListProperty(ctx, terms("a name that is far longer than 32 bytes", 1_000, 10))
		requireCode(t, errors.INVALID_TERMS, err)

		bad := terms("Bad issuer", 1_000, 10)
		bad.Issuer = "not-a-key"
		_, err = e.svc.ListProperty(ctx, bad)
		requireCode(t, errors.INVALID_ADDRESS, err)

		properties, err := e.svc.ListProperties(ctx, application.PropertyFilter{})
		require.Nil(t, err)
		require.Len(t, properties, 1)
	})
}

func TestListPropertiesMarketplace(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	priced, err := e.svc.ListProperty(ctx, terms("Priced", 1_000, 10))
	require.Nil(t, err)
	_, err = e.svc.ListProperty(ctx, terms("Giveaway", 0, 10))
	require.Nil(t, err)

	all, err := e.svc.ListProperties(ctx, application.PropertyFilter{})
	require.Nil(t, err)
	require.Len(t, all, 2)

	market, err := e.svc.ListProperties(ctx, application.PropertyFilter{Marketplace: true})
	require.Nil(t, err)
	require.Len(t, market, 1)
	require.Equal(t, priced.Address, market[0].Address)
}

func TestBuyShares(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	property, err := e.svc.ListProperty(ctx, terms("Casa Azul", 1_000_000, 1000))
	require.Nil(t, err)
	buyer := fundedBuyer(t, e, 10_000)

	t.Run("valid", func(t *testing.T) {
		receipt, err := e.svc.BuyShares(ctx, application.BuySharesRequest{
			Property: property.Address, Buyer: buyer, Shares: 3,
		})
		require.Nil(t, err)
		require.True(t, receipt.NewPosition)
		require.Equal(t, uint64(3_000), receipt.Cost)
		require.Equal(t, uint64(3), receipt.Property.SharesSold)
		require.Equal(t, uint64(3), receipt.Position.SharesOwned)
		require.Zero(t, receipt.Position.TotalClaimed)

		receipt, err = e.svc.BuyShares(ctx, application.BuySharesRequest{
			Property: property.Address, Buyer: buyer, Shares: 2, Source: receipt.Source,
		})
		require.Nil(t, err)
		require.False(t, receipt.NewPosition)
		require.Equal(t, uint64(5), receipt.Position.SharesOwned)

		vault, err := e.svc.GetAccount(ctx, property.Vault)
		require.Nil(t, err)
		require.Equal(t, uint64(5_000), vault.Amount)

		source, err := e.svc.GetAccount(ctx, receipt.Source)
		require.Nil(t, err)
		require.Equal(t, uint64(5_000), source.Amount)

		position, err := e.svc.GetPosition(ctx, property.Address, buyer)
		require.Nil(t, err)
		require.Equal(t, uint64(5), position.SharesOwned)

		history, err := e.svc.GetPropertyHistory(ctx, property.Address)
		require.Nil(t, err)
		require.Len(t, history, 3)
		purchase, ok := history[2].(domain.SharesPurchased)
		require.True(t, ok)
		require.Equal(t, uint64(2), purchase.Shares)
		require.Equal(t, uint64(5), purchase.SharesSold)
	})

	t.Run("invalid", func(t *testing.T) {
		stranger := fundedBuyer(t, e, 10_000)
		strangerSource, derr := domain.AssociatedTokenAccount(stranger, usdcMint)
		require.NoError(t, derr)

		otherMint := newKey()
		_, err := e.svc.Fund(ctx, buyer, otherMint, 10_000)
		require.Nil(t, err)
		otherSource, derr := domain.AssociatedTokenAccount(buyer, otherMint)
		require.NoError(t, derr)

		poor := fundedBuyer(t, e, 10)

		fixtures := []struct {
			name string
			req  application.BuySharesRequest
			code uint16
		}{
			{
				name: "zero shares",
				req:  application.BuySharesRequest{Property: property.Address, Buyer: buyer},
				code: errors.INVALID_SHARES_AMOUNT.Code,
			},
			{
				name: "oversold",
				req: application.BuySharesRequest{
					Property: property.Address, Buyer: buyer, Shares: 996,
				},
				code: errors.OVERSOLD.Code,
			},
			{
				name: "shares sum overflow",
				req: application.BuySharesRequest{
					Property: property.Address, Buyer: buyer, Shares: ^uint64(0),
				},
				code: errors.ARITHMETIC_OVERFLOW.Code,
			},
			{
				name: "unknown property",
				req: application.BuySharesRequest{
					Property: newKey(), Buyer: buyer, Shares: 1,
				},
				code: errors.PROPERTY_NOT_FOUND.Code,
			},
			{
				name: "source owned by someone else",
				req: application.BuySharesRequest{
					Property: property.Address, Buyer: buyer, Shares: 1, Source: strangerSource,
				},
				code: errors.OWNER_MISMATCH.Code,
			},
			{
				name: "source in another asset",
				req: application.BuySharesRequest{
					Property: property.Address, Buyer: buyer, Shares: 1, Source: otherSource,
				},
				code: errors.ASSET_MISMATCH.Code,
			},
			{
				name: "insufficient balance",
				req: application.BuySharesRequest{
					Property: property.Address, Buyer: poor, Shares: 1,
				},
				code: errors.TRANSFER_REJECTED.Code,
			},
			{
				name: "missing source account",
				req: application.BuySharesRequest{
					Property: property.Address, Buyer: newKey(), Shares: 1,
				},
				code: errors.ACCOUNT_NOT_FOUND.Code,
			},
			{
				name: "vault paying itself",
				req: application.BuySharesRequest{
					Property: property.Address, Buyer: property.Vault, Shares: 5,
					Source: property.Vault,
				},
				code: errors.TRANSFER_REJECTED.Code,
			},
			{
				name: "malformed buyer",
				req: application.BuySharesRequest{
					Property: property.Address, Buyer: "nope", Shares: 1,
				},
				code: errors.INVALID_ADDRESS.Code,
			},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				_, err := e.svc.BuyShares(ctx, f.req)
				require.NotNil(t, err)
				require.Equal(t, f.code, err.Code(), err.Error())
			})
		}

		got, err := e.svc.GetProperty(ctx, property.Address)
		require.Nil(t, err)
		require.Equal(t, uint64(5), got.SharesSold)

		vault, err := e.svc.GetAccount(ctx, property.Vault)
		require.Nil(t, err)
		require.Equal(t, uint64(5_000), vault.Amount)

		_, err = e.svc.GetPosition(ctx, property.Address, property.Vault)
		requireCode(t, errors.POSITION_NOT_FOUND, err)

		report, err := e.svc.Audit(ctx)
		require.Nil(t, err)
		require.True(t, report.Healthy(), fmt.Sprintf("%+v", report.Violations))
	})

	t.Run("sell out", func(t *testing.T) {
		whale := fundedBuyer(t, e, 1_000_000)
		receipt, err := e.svc.BuyShares(ctx, application.BuySharesRequest{
			Property: property.Address, Buyer: whale, Shares: 995,
		})
		require.Nil(t, err)
		require.Equal(t, receipt.Property.TotalShares, receipt.Property.SharesSold)

		_, err = e.svc.BuyShares(ctx, application.BuySharesRequest{
			Property: property.Address, Buyer: whale, Shares: 1,
		})
		requireCode(t, errors.OVERSOLD, err)
	})
}

func TestBuySharesRollback(t *testing.T) {
	ctx := context.Background()
	var failing *failingRepoManager
	e := newEnv(t, func(rm ports.RepoManager) ports.RepoManager {
		failing = &failingRepoManager{RepoManager: rm}
		return failing
	})

	property, err := e.svc.ListProperty(ctx, terms("Rollback", 1_000, 10))
	require.Nil(t, err)
	buyer := fundedBuyer(t, e, 1_000)

	failing.failPositions = true
	_, err = e.svc.BuyShares(ctx, application.BuySharesRequest{
		Property: property.Address, Buyer: buyer, Shares: 4,
	})
	requireCode(t, errors.INTERNAL_ERROR, err)

	got, err := e.svc.GetProperty(ctx, property.Address)
	require.Nil(t, err)
	require.Zero(t, got.SharesSold)

	vault, err := e.svc.GetAccount(ctx, property.Vault)
	require.Nil(t, err)
	require.Zero(t, vault.Amount)

	source, derr := domain.AssociatedTokenAccount(buyer, usdcMint)
	require.NoError(t, derr)
	account, err := e.svc.GetAccount(ctx, source)
	require.Nil(t, err)
	require.Equal(t, uint64(1_000), account.Amount)

	_, err = e.svc.GetPosition(ctx, property.Address, buyer)
	requireCode(t, errors.POSITION_NOT_FOUND, err)
}

func TestConcurrentPurchases(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	property, err := e.svc.ListProperty(ctx, terms("Busy", 1_000_000, 50))
	require.Nil(t, err)

	buyers := make([]string, 8)
	for i := range buyers {
		buyers[i] = fundedBuyer(t, e, 1_000_000)
	}

	wg := &sync.WaitGroup{}
	var lock sync.Mutex
	succeeded := uint64(0)
	for _, buyer := range buyers {
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.svc.BuyShares(ctx, application.BuySharesRequest{
					Property: property.Address, Buyer: buyer, Shares: 1,
				})
				if err == nil {
					lock.Lock()
					succeeded++
					lock.Unlock()
					return
				}
				require.Equal(t, errors.OVERSOLD.Code, err.Code(), err.Error())
			}()
		}
	}
	wg.Wait()

	require.Equal(t, uint64(50), succeeded)
	got, err := e.svc.GetProperty(ctx, property.Address)
	require.Nil(t, err)
	require.Equal(t, uint64(50), got.SharesSold)

	report, err := e.svc.Audit(ctx)
	require.Nil(t, err)
	require.True(t, report.Healthy(), fmt.Sprintf("%+v", report.Violations))
}

func TestAuditDuringPurchases(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	property, err := e.svc.ListProperty(ctx, terms("Audited live", 1_000, 200))
	require.Nil(t, err)

	buyers := make([]string, 4)
	for i := range buyers {
		buyers[i] = fundedBuyer(t, e, 1_000)
	}

	done := make(chan struct{})
	audits, violations := 0, 0
	auditErrs := make([]errors.Error, 0)
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		for {
			select {
			case <-done:
				return
			default:
			}
			report, err := e.svc.Audit(ctx)
			if err != nil {
				auditErrs = append(auditErrs, err)
				continue
			}
			audits++
			violations += len(report.Violations)
		}
	}()

	wg := &sync.WaitGroup{}
	for _, buyer := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, err := e.svc.BuyShares(ctx, application.BuySharesRequest{
					Property: property.Address, Buyer: buyer, Shares: 1,
				})
				require.Nil(t, err)
			}
		}()
	}
	wg.Wait()
	close(done)
	<-auditDone

	require.Empty(t, auditErrs)
	require.NotZero(t, audits)
	require.Zero(t, violations)

	got, err := e.svc.GetProperty(ctx, property.Address)
	require.Nil(t, err)
	require.Equal(t, uint64(200), got.SharesSold)

	vault, err := e.svc.GetAccount(ctx, property.Vault)
	require.Nil(t, err)
	require.Equal(t, uint64(1_000), vault.Amount)
}

func TestQuotePurchase(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	property, err := e.svc.ListProperty(ctx, terms("Truncated", 1_000, 3))
	require.Nil(t, err)

	quote, err := e.svc.QuotePurchase(ctx, property.Address, 3)
	require.Nil(t, err)
	require.Equal(t, uint64(333), quote.SharePrice)
	require.Equal(t, uint64(999), quote.Cost)
	require.Equal(t, uint64(1_000), quote.ExactCost)
	require.Equal(t, uint64(1), quote.Shortfall)
	require.Equal(t, uint64(3), quote.AvailableShares)

	buyer := fundedBuyer(t, e, 999)
	receipt, err := e.svc.BuyShares(ctx, application.BuySharesRequest{
		Property: property.Address, Buyer: buyer, Shares: 3,
	})
	require.Nil(t, err)
	require.Equal(t, quote.Cost, receipt.Cost)

	_, err = e.svc.QuotePurchase(ctx, property.Address, 1)
	requireCode(t, errors.OVERSOLD, err)

	cheap, err := e.svc.ListProperty(ctx, terms("Cheap", 5, 10))
	require.Nil(t, err)
	quote, err = e.svc.QuotePurchase(ctx, cheap.Address, 10)
	require.Nil(t, err)
	require.Zero(t, quote.Cost)
	require.Equal(t, uint64(5), quote.Shortfall)
}

func TestPortfolio(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	first, err := e.svc.ListProperty(ctx, terms("First", 1_000, 10))
	require.Nil(t, err)
	second, err := e.svc.ListProperty(ctx, terms("Second", 2_000, 10))
	require.Nil(t, err)

	buyer := fundedBuyer(t, e, 10_000)
	for _, p := range []*domain.Property{first, second} {
		_, err := e.svc.BuyShares(ctx, application.BuySharesRequest{
			Property: p.Address, Buyer: buyer, Shares: 2,
		})
		require.Nil(t, err)
	}

	portfolio, err := e.svc.GetPortfolio(ctx, buyer)
	require.Nil(t, err)
	require.Len(t, portfolio.Holdings, 2)
	require.Equal(t, uint64(4), portfolio.TotalShares)
	require.Equal(t, uint64(200+400), portfolio.TotalValue)

	empty, err := e.svc.GetPortfolio(ctx, newKey())
	require.Nil(t, err)
	require.Empty(t, empty.Holdings)
}

func TestAudit(t *testing.T) {
	ctx := context.Background()
	alerts := &mockedAlerts{}
	e := newEnv(t, nil, application.WithAlerts(alerts))

	property, err := e.svc.ListProperty(ctx, terms("Audited", 1_000, 10))
	require.Nil(t, err)

	report, err := e.svc.Audit(ctx)
	require.Nil(t, err)
	require.True(t, report.Healthy())
	require.Equal(t, 1, report.Properties)

	require.Eventually(t, func() bool {
		return alerts.count(ports.PropertyListed) == 1
	}, 5*time.Second, 50*time.Millisecond)

	vault, verr := e.ledger.GetAccount(ctx, property.Vault)
	require.NoError(t, verr)
	vault.Amount = 7
	require.NoError(t, e.repoManager.Accounts().UpdateAccount(ctx, *vault))

	report, err = e.svc.Audit(ctx)
	require.Nil(t, err)
	require.Len(t, report.Violations, 1)
	require.Equal(t, application.InvariantVaultBalance, report.Violations[0].Invariant)
	require.Zero(t, report.Violations[0].Expected)
	require.Equal(t, uint64(7), report.Violations[0].Actual)
}

func TestFaucetDisabled(t *testing.T) {
	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)
	deriver, err := domain.NewAddressDeriver("")
	require.NoError(t, err)

	svc, err := application.NewService(
		repoManager, ledger.NewService(repoManager.Accounts()),
		inmemorysequencer.NewSequencer(), deriver,
	)
	require.NoError(t, err)
	defer svc.Stop()

	_, ferr := svc.Fund(context.Background(), newKey(), usdcMint, 1)
	requireCode(t, errors.FAUCET_DISABLED, ferr)
}

type failingRepoManager struct {
	ports.RepoManager
	failPositions bool
}

func (m *failingRepoManager) Positions() domain.PositionRepository {
	if m.failPositions {
		return &failingPositions{m.RepoManager.Positions()}
	}
	return m.RepoManager.Positions()
}

type failingPositions struct {
	domain.PositionRepository
}

func (r *failingPositions) AddPosition(context.Context, domain.InvestorPosition) error {
	return fmt.Errorf("disk full")
}

type mockedAlerts struct {
	lock   sync.Mutex
	topics []ports.Topic
}

func (m *mockedAlerts) Publish(_ context.Context, topic ports.Topic, _ interface{}) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.topics = append(m.topics, topic)
	return nil
}

func (m *mockedAlerts) count(topic ports.Topic) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	n := 0
	for _, t := range m.topics {
		if t == topic {
			n++
		}
	}
	return n
}
