package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
)

type service struct {
	accounts domain.AccountRepository
}

// NewService returns a token ledger that keeps balances in the given account
// store. Calls share the store's transaction when ctx carries one.
func NewService(accounts domain.AccountRepository) ports.TokenLedger {
	return &service{accounts}
}

func (s *service) OpenVault(
	ctx context.Context, address, mint string,
) (*domain.TokenAccount, error) {
	vault := domain.NewTokenAccount(address, mint, address, time.Now().Unix())
	if err := s.accounts.AddAccount(ctx, *vault); err != nil {
		return nil, err
	}
	return vault, nil
}

func (s *service) Transfer(ctx context.Context, req ports.TransferRequest) error {
	if req.From == req.To {
		return fmt.Errorf("%w: %s", domain.ErrSelfTransfer, req.From)
	}

	from, err := s.accounts.GetAccount(ctx, req.From)
	if err != nil {
		return fmt.Errorf("source account: %w", err)
	}
	to, err := s.accounts.GetAccount(ctx, req.To)
	if err != nil {
		return fmt.Errorf("destination account: %w", err)
	}

	if from.Mint != req.Mint {
		return fmt.Errorf(
			"%w: source %s holds %s, expected %s", domain.ErrMintMismatch, from.Address, from.Mint, req.Mint,
		)
	}
	if to.Mint != req.Mint {
		return fmt.Errorf(
			"%w: destination %s holds %s, expected %s", domain.ErrMintMismatch, to.Address, to.Mint, req.Mint,
		)
	}
	if from.Owner != req.Authority {
		return fmt.Errorf("%w: %s is owned by %s", domain.ErrUnauthorized, from.Address, from.Owner)
	}

	now := time.Now().Unix()
	if err := from.Debit(req.Amount, now); err != nil {
		return err
	}
	if err := to.Credit(req.Amount, now); err != nil {
		return err
	}

	if err := s.accounts.UpdateAccount(ctx, *from); err != nil {
		return err
	}
	if err := s.accounts.UpdateAccount(ctx, *to); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"from":   from.Address,
		"to":     to.Address,
		"mint":   req.Mint,
		"amount": req.Amount,
	}).Debug("transfer applied")
	return nil
}

func (s *service) GetAccount(ctx context.Context, address string) (*domain.TokenAccount, error) {
	return s.accounts.GetAccount(ctx, address)
}

func (s *service) Deposit(
	ctx context.Context, owner, mint string, amount uint64,
) (*domain.TokenAccount, error) {
	address, err := domain.AssociatedTokenAccount(owner, mint)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	account, err := s.accounts.GetAccount(ctx, address)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		account = domain.NewTokenAccount(address, mint, owner, now)
		if err := account.Credit(amount, now); err != nil {
			return nil, err
		}
		if err := s.accounts.AddAccount(ctx, *account); err != nil {
			return nil, err
		}
		return account, nil
	}

	if account.Mint != mint {
		return nil, fmt.Errorf(
			"%w: account %s holds %s, expected %s", domain.ErrMintMismatch, address, account.Mint, mint,
		)
	}
	if err := account.Credit(amount, now); err != nil {
		return nil, err
	}
	if err := s.accounts.UpdateAccount(ctx, *account); err != nil {
		return nil, err
	}
	return account, nil
}
