package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
	"github.com/solestate/estated/pkg/errors"
)

type service struct {
	// services
	repoManager ports.RepoManager
	ledger      ports.TokenLedger
	sequencer   ports.Sequencer
	scheduler   ports.SchedulerService
	alerts      ports.Alerts
	deriver     *domain.AddressDeriver
	metrics     *metrics

	// config
	auditInterval time.Duration
	faucetEnabled bool

	stopOnce *sync.Once
}

type Option func(*service)

// WithAlerts publishes listings, purchases and audit violations to alerts.
func WithAlerts(alerts ports.Alerts) Option {
	return func(s *service) {
		s.alerts = alerts
	}
}

// WithAudit runs Audit every interval on scheduler once the service starts.
func WithAudit(scheduler ports.SchedulerService, interval time.Duration) Option {
	return func(s *service) {
		s.scheduler = scheduler
		s.auditInterval = interval
	}
}

func WithFaucet() Option {
	return func(s *service) {
		s.faucetEnabled = true
	}
}

func NewService(
	repoManager ports.RepoManager,
	ledger ports.TokenLedger,
	sequencer ports.Sequencer,
	deriver *domain.AddressDeriver,
	opts ...Option,
) (Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if ledger == nil {
		return nil, fmt.Errorf("missing token ledger")
	}
	if sequencer == nil {
		return nil, fmt.Errorf("missing sequencer")
	}
	if deriver == nil {
		return nil, fmt.Errorf("missing address deriver")
	}

	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %s", err)
	}

	svc := &service{
		repoManager: repoManager,
		ledger:      ledger,
		sequencer:   sequencer,
		deriver:     deriver,
		metrics:     m,
		stopOnce:    &sync.Once{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *service) Start() errors.Error {
	log.Debug("starting app service...")

	if s.alerts != nil {
		s.repoManager.Events().RegisterEventsHandler(domain.PropertyTopic, s.forwardEvents)
	}

	if s.scheduler != nil && s.auditInterval > 0 {
		s.scheduler.Start()
		if err := s.scheduler.ScheduleTask(s.auditInterval, false, s.runAudit); err != nil {
			return errors.INTERNAL_ERROR.New("failed to schedule audit: %s", err)
		}
		log.Debugf("scheduled invariant audit every %s", s.auditInterval)
	}
	return nil
}

func (s *service) Stop() {
	s.stopOnce.Do(func() {
		if s.scheduler != nil && s.auditInterval > 0 {
			s.scheduler.Stop()
			log.Debug("stopped scheduler")
		}
		s.repoManager.Events().ClearRegisteredHandlers()
		s.sequencer.Close()
		log.Debug("closed sequencer")
		s.repoManager.Close()
		log.Debug("closed connection to db")
	})
}

func (s *service) ListProperty(
	ctx context.Context, terms domain.ListingTerms,
) (*domain.Property, errors.Error) {
	property, err := domain.NewProperty(s.deriver, terms, time.Now().Unix())
	if err != nil {
		s.metrics.rejected(ctx, "list_property", err)
		return nil, toError(err)
	}

	unlock, err := s.sequencer.Lock(ctx, property.Address, property.Vault)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.New("failed to lock listing: %s", err)
	}
	defer unlock()

	duplicate := errors.ListingMetadata{
		Name:     property.Name,
		Property: property.Address,
		Vault:    property.Vault,
	}
	if err := s.repoManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repoManager.Properties().AddProperty(ctx, *property); err != nil {
			if errors.Is(err, domain.ErrRecordExists) {
				return errors.DUPLICATE_LISTING.New(
					"property %s is already listed", property.Name,
				).WithMetadata(duplicate)
			}
			return err
		}
		if _, err := s.ledger.OpenVault(
			ctx, property.Vault, property.SettlementAsset,
		); err != nil {
			if errors.Is(err, domain.ErrRecordExists) {
				return errors.DUPLICATE_LISTING.New(
					"vault %s already exists", property.Vault,
				).WithMetadata(duplicate)
			}
			return err
		}
		return nil
	}); err != nil {
		s.metrics.rejected(ctx, "list_property", err)
		return nil, toError(err)
	}

	s.saveEvents(ctx, property.Address, domain.NewPropertyListed(*property))
	s.metrics.listed(ctx)

	log.WithFields(log.Fields{
		"property": property.Address,
		"vault":    property.Vault,
		"name":     property.Name,
		"shares":   property.TotalShares,
	}).Info("property listed")

	return property, nil
}

func (s *service) BuyShares(
	ctx context.Context, req BuySharesRequest,
) (*PurchaseReceipt, errors.Error) {
	if !domain.IsValidKey(req.Property) {
		return nil, errors.INVALID_ADDRESS.New("invalid property %s", req.Property).
			WithMetadata(errors.AddressMetadata{Field: "property", Value: req.Property})
	}
	if !domain.IsValidKey(req.Buyer) {
		return nil, errors.INVALID_ADDRESS.New("invalid buyer %s", req.Buyer).
			WithMetadata(errors.AddressMetadata{Field: "buyer", Value: req.Buyer})
	}
	if req.Source != "" && !domain.IsValidKey(req.Source) {
		return nil, errors.INVALID_ADDRESS.New("invalid source account %s", req.Source).
			WithMetadata(errors.AddressMetadata{Field: "source", Value: req.Source})
	}

	unlock, err := s.sequencer.Lock(ctx, req.Property)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.New("failed to lock property: %s", err)
	}
	defer unlock()

	var receipt *PurchaseReceipt
	if err := s.repoManager.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.buyShares(ctx, req)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	}); err != nil {
		s.metrics.rejected(ctx, "buy_shares", err)
		return nil, toError(err)
	}

	property, position := receipt.Property, receipt.Position
	s.saveEvents(ctx, property.Address, domain.SharesPurchased{
		Id:          property.Address,
		Type:        domain.EventTypeSharesPurchased,
		Buyer:       req.Buyer,
		Position:    position.Address,
		Source:      receipt.Source,
		Shares:      req.Shares,
		Cost:        receipt.Cost,
		SharesSold:  property.SharesSold,
		TotalShares: property.TotalShares,
		SharesOwned: position.SharesOwned,
		NewPosition: receipt.NewPosition,
		Timestamp:   property.UpdatedAt,
	})
	s.metrics.purchased(ctx, req.Shares, receipt.Cost)

	log.WithFields(log.Fields{
		"property": property.Address,
		"buyer":    req.Buyer,
		"shares":   req.Shares,
		"cost":     receipt.Cost,
		"sold":     fmt.Sprintf("%d/%d", property.SharesSold, property.TotalShares),
	}).Info("shares purchased")

	return receipt, nil
}

// buyShares applies a purchase. It must run inside a transaction: every
// write it performs is discarded if any later step fails.
func (s *service) buyShares(ctx context.Context, req BuySharesRequest) (*PurchaseReceipt, error) {
	property, err := s.repoManager.Properties().GetProperty(ctx, req.Property)
	if err != nil {
		return nil, propertyNotFound(req.Property, err)
	}

	if err := property.ValidatePurchase(req.Shares); err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		ata, err := domain.AssociatedTokenAccount(req.Buyer, property.SettlementAsset)
		if err != nil {
			return nil, errors.INVALID_ADDRESS.Wrap(err).
				WithMetadata(errors.AddressMetadata{Field: "buyer", Value: req.Buyer})
		}
		source = ata
	}
	if source == property.Vault {
		return nil, errors.TRANSFER_REJECTED.New(
			"source account %s is the vault of property %s", source, property.Address,
		).WithMetadata(errors.TransferMetadata{
			From:   source,
			To:     property.Vault,
			Mint:   property.SettlementAsset,
			Reason: domain.ErrSelfTransfer.Error(),
		})
	}

	account, err := s.ledger.GetAccount(ctx, source)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, errors.ACCOUNT_NOT_FOUND.New("source account %s not found", source).
				WithMetadata(errors.AccountMetadata{Account: source})
		}
		return nil, err
	}
	if account.Owner != req.Buyer {
		return nil, errors.OWNER_MISMATCH.New(
			"source account %s is not owned by buyer %s", source, req.Buyer,
		).WithMetadata(errors.OwnerMismatchMetadata{
			Account: source, Expected: req.Buyer, Got: account.Owner,
		})
	}
	if account.Mint != property.SettlementAsset {
		return nil, errors.ASSET_MISMATCH.New(
			"source account %s holds %s, property settles in %s",
			source, account.Mint, property.SettlementAsset,
		).WithMetadata(errors.AssetMismatchMetadata{
			Account: source, Expected: property.SettlementAsset, Got: account.Mint,
		})
	}

	cost, err := property.PurchaseCost(req.Shares)
	if err != nil {
		return nil, err
	}

	transfer := ports.TransferRequest{
		Mint:      property.SettlementAsset,
		From:      source,
		To:        property.Vault,
		Authority: req.Buyer,
		Amount:    cost,
	}
	if err := s.ledger.Transfer(ctx, transfer); err != nil {
		if errors.ARITHMETIC_OVERFLOW.Is(err) {
			return nil, err
		}
		return nil, errors.TRANSFER_REJECTED.Wrap(err).WithMetadata(errors.TransferMetadata{
			From:   transfer.From,
			To:     transfer.To,
			Mint:   transfer.Mint,
			Amount: transfer.Amount,
			Reason: err.Error(),
		})
	}

	now := time.Now().Unix()
	if err := property.Sell(req.Shares, now); err != nil {
		return nil, err
	}

	lookup, err := domain.GetOrCreatePosition(
		ctx, s.repoManager.Positions(), s.deriver, property.Address, req.Buyer, now,
	)
	if err != nil {
		return nil, err
	}
	if err := lookup.Position.Credit(req.Shares, now); err != nil {
		return nil, err
	}

	if err := s.repoManager.Properties().UpdateProperty(ctx, *property); err != nil {
		return nil, err
	}
	if err := domain.SavePosition(ctx, s.repoManager.Positions(), lookup); err != nil {
		return nil, err
	}

	return &PurchaseReceipt{
		Property:    *property,
		Position:    *lookup.Position,
		Source:      source,
		Cost:        cost,
		NewPosition: lookup.Fresh,
	}, nil
}

func (s *service) Fund(
	ctx context.Context, owner, mint string, amount uint64,
) (*domain.TokenAccount, errors.Error) {
	if !s.faucetEnabled {
		return nil, errors.FAUCET_DISABLED.New("faucet is disabled")
	}
	if !domain.IsValidKey(owner) {
		return nil, errors.INVALID_ADDRESS.New("invalid owner %s", owner).
			WithMetadata(errors.AddressMetadata{Field: "owner", Value: owner})
	}
	if !domain.IsValidKey(mint) {
		return nil, errors.INVALID_ADDRESS.New("invalid mint %s", mint).
			WithMetadata(errors.AddressMetadata{Field: "mint", Value: mint})
	}

	ata, err := domain.AssociatedTokenAccount(owner, mint)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	unlock, err := s.sequencer.Lock(ctx, ata)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.New("failed to lock account: %s", err)
	}
	defer unlock()

	var account *domain.TokenAccount
	if err := s.repoManager.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.ledger.Deposit(ctx, owner, mint, amount)
		if err != nil {
			return err
		}
		account = a
		return nil
	}); err != nil {
		if errors.Is(err, domain.ErrMintMismatch) {
			return nil, errors.ASSET_MISMATCH.Wrap(err).WithMetadata(
				errors.AssetMismatchMetadata{Account: ata, Expected: mint},
			)
		}
		return nil, toError(err)
	}

	log.WithFields(log.Fields{
		"account": account.Address,
		"owner":   owner,
		"amount":  amount,
	}).Info("faucet funded account")
	return account, nil
}

func (s *service) saveEvents(ctx context.Context, id string, events ...domain.Event) {
	if err := s.repoManager.Events().Save(ctx, domain.PropertyTopic, id, events); err != nil {
		log.WithError(err).WithField("property", id).Warn("failed to save events")
	}
}
