package ports

import (
	"context"

	"github.com/solestate/estated/internal/core/domain"
)

type TransferRequest struct {
	Mint      string
	From      string
	To        string
	Authority string
	Amount    uint64
}

// TokenLedger moves settlement tokens between custody accounts. Calls made
// with a context obtained from RepoManager.RunInTx join that transaction.
type TokenLedger interface {
	// OpenVault creates an empty account owned by itself at address.
	OpenVault(ctx context.Context, address, mint string) (*domain.TokenAccount, error)
	// Transfer fails with domain.ErrInsufficientBalance, domain.ErrMintMismatch
	// or domain.ErrUnauthorized when the transfer cannot be applied.
	Transfer(ctx context.Context, req TransferRequest) error
	GetAccount(ctx context.Context, address string) (*domain.TokenAccount, error)
	// Deposit credits the associated token account of owner, creating it if needed.
	Deposit(ctx context.Context, owner, mint string, amount uint64) (*domain.TokenAccount, error)
}
