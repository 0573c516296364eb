package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
	"github.com/solestate/estated/internal/infrastructure/db"
	"github.com/solestate/estated/internal/infrastructure/ledger"
	"github.com/stretchr/testify/require"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func newKey() string {
	return solana.NewWallet().PublicKey().String()
}

func newRepoManager(t *testing.T) ports.RepoManager {
	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	repoManager := newRepoManager(t)
	svc := ledger.NewService(repoManager.Accounts())

	buyer := newKey()
	vaultAddr := newKey()

	t.Run("open vault", func(t *testing.T) {
		vault, err := svc.OpenVault(ctx, vaultAddr, usdcMint)
		require.NoError(t, err)
		require.Equal(t, vaultAddr, vault.Owner)
		require.Zero(t, vault.Amount)

		_, err = svc.OpenVault(ctx, vaultAddr, usdcMint)
		require.ErrorIs(t, err, domain.ErrRecordExists)
	})

	var source string
	t.Run("deposit", func(t *testing.T) {
		account, err := svc.Deposit(ctx, buyer, usdcMint, 1_000)
		require.NoError(t, err)
		require.Equal(t, uint64(1_000), account.Amount)
		require.Equal(t, buyer, account.Owner)

		ata, err := domain.AssociatedTokenAccount(buyer, usdcMint)
		require.NoError(t, err)
		require.Equal(t, ata, account.Address)
		source = account.Address

		account, err = svc.Deposit(ctx, buyer, usdcMint, 500)
		require.NoError(t, err)
		require.Equal(t, uint64(1_500), account.Amount)
	})

	t.Run("transfer", func(t *testing.T) {
		err := svc.Transfer(ctx, ports.TransferRequest{
			Mint: usdcMint, From: source, To: vaultAddr, Authority: buyer, Amount: 600,
		})
		require.NoError(t, err)

		from, err := svc.GetAccount(ctx, source)
		require.NoError(t, err)
		require.Equal(t, uint64(900), from.Amount)
		to, err := svc.GetAccount(ctx, vaultAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(600), to.Amount)
	})

	t.Run("invalid", func(t *testing.T) {
		otherMint := newKey()
		_, err := svc.Deposit(ctx, newKey(), otherMint, 10)
		require.NoError(t, err)

		fixtures := []struct {
			name     string
			req      ports.TransferRequest
			expected error
		}{
			{
				name: "insufficient balance",
				req: ports.TransferRequest{
					Mint: usdcMint, From: source, To: vaultAddr, Authority: buyer, Amount: 901,
				},
				expected: domain.ErrInsufficientBalance,
			},
			{
				name: "wrong authority",
				req: ports.TransferRequest{
					Mint: usdcMint, From: source, To: vaultAddr, Authority: newKey(), Amount: 1,
				},
				expected: domain.ErrUnauthorized,
			},
			{
				name: "wrong mint",
				req: ports.TransferRequest{
					Mint: otherMint, From: source, To: vaultAddr, Authority: buyer, Amount: 1,
				},
				expected: domain.ErrMintMismatch,
			},
			{
				name: "missing source",
				req: ports.TransferRequest{
					Mint: usdcMint, From: newKey(), To: vaultAddr, Authority: buyer, Amount: 1,
				},
				expected: domain.ErrAccountNotFound,
			},
			{
				name: "same account",
				req: ports.TransferRequest{
					Mint: usdcMint, From: vaultAddr, To: vaultAddr, Authority: vaultAddr, Amount: 1,
				},
				expected: domain.ErrSelfTransfer,
			},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				err := svc.Transfer(ctx, f.req)
				require.ErrorIs(t, err, f.expected)
			})
		}

		from, err := svc.GetAccount(ctx, source)
		require.NoError(t, err)
		require.Equal(t, uint64(900), from.Amount)
		vault, err := svc.GetAccount(ctx, vaultAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(600), vault.Amount)
	})

	t.Run("rolled back with the enclosing transaction", func(t *testing.T) {
		failure := errors.New("later step failed")
		err := repoManager.RunInTx(ctx, func(ctx context.Context) error {
			if err := svc.Transfer(ctx, ports.TransferRequest{
				Mint: usdcMint, From: source, To: vaultAddr, Authority: buyer, Amount: 100,
			}); err != nil {
				return err
			}
			return failure
		})
		require.ErrorIs(t, err, failure)

		from, err := svc.GetAccount(ctx, source)
		require.NoError(t, err)
		require.Equal(t, uint64(900), from.Amount)
		to, err := svc.GetAccount(ctx, vaultAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(600), to.Amount)
	})
}
