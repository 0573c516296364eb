package domain

import "fmt"

// TokenAccount is a custody or settlement account holding a single mint.
type TokenAccount struct {
	Address   string
	Mint      string
	Owner     string
	Amount    uint64
	CreatedAt int64
	UpdatedAt int64
}

func NewTokenAccount(address, mint, owner string, now int64) *TokenAccount {
	return &TokenAccount{
		Address:   address,
		Mint:      mint,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (a *TokenAccount) Debit(amount uint64, now int64) error {
	if a.Amount < amount {
		return fmt.Errorf(
			"%w: account %s holds %d, needs %d", ErrInsufficientBalance, a.Address, a.Amount, amount,
		)
	}
	a.Amount -= amount
	a.UpdatedAt = now
	return nil
}

func (a *TokenAccount) Credit(amount uint64, now int64) error {
	balance, err := CheckedAdd("account_balance", a.Amount, amount)
	if err != nil {
		return err
	}
	a.Amount = balance
	a.UpdatedAt = now
	return nil
}
