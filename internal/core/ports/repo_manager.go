package ports

import (
	"context"

	"github.com/solestate/estated/internal/core/domain"
)

type RepoManager interface {
	Events() domain.EventRepository
	Properties() domain.PropertyRepository
	Positions() domain.PositionRepository
	Accounts() domain.AccountRepository
	// RunInTx runs fn in a single storage transaction. Repository calls made
	// with the context passed to fn are committed together only if fn returns
	// nil; otherwise every write is discarded. fn may run more than once when
	// the store detects a conflicting concurrent write.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	// RunInReadTx runs fn against a single consistent snapshot of the store.
	// fn must not write.
	RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close()
}
