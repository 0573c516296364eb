package errors_test

import (
	"fmt"
	"testing"

	"github.com/solestate/estated/pkg/errors"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
)

// generateErrorFixtures creates test fixtures with sample metadata for each error type
func generateErrorFixtures() []errors.Error {
	return []errors.Error{
		errors.INTERNAL_ERROR.New("internal server error occurred").
			WithMetadata(map[string]any{"component": "database"}),
		errors.INVALID_TERMS.New("total shares must be greater than zero").
			WithMetadata(errors.ListingMetadata{Name: "Villa"}),
		errors.DUPLICATE_LISTING.New("property already listed").
			WithMetadata(errors.ListingMetadata{Name: "Villa", Property: "prop"}),
		errors.OVERSOLD.New("not enough shares left").
			WithMetadata(errors.OversoldMetadata{
				Property: "prop", Requested: 2, SharesSold: 9, TotalShares: 10,
			}),
		errors.ASSET_MISMATCH.New("wrong mint").
			WithMetadata(errors.AssetMismatchMetadata{Account: "a", Expected: "m1", Got: "m2"}),
		errors.OWNER_MISMATCH.New("wrong owner").
			WithMetadata(errors.OwnerMismatchMetadata{Account: "a", Expected: "o1", Got: "o2"}),
		errors.ARITHMETIC_OVERFLOW.New("overflow").
			WithMetadata(errors.OverflowMetadata{Operation: "mul", Left: 1, Right: 2}),
		errors.TRANSFER_REJECTED.New("insufficient balance").
			WithMetadata(errors.TransferMetadata{From: "a", To: "b", Amount: 10}),
		errors.PROPERTY_NOT_FOUND.New("not found").
			WithMetadata(errors.PropertyMetadata{Property: "prop"}),
		errors.POSITION_NOT_FOUND.New("not found").
			WithMetadata(errors.PositionMetadata{Property: "prop", Owner: "o"}),
		errors.ACCOUNT_NOT_FOUND.New("not found").
			WithMetadata(errors.AccountMetadata{Account: "a"}),
		errors.WRITE_CONFLICT.New("too many conflicts").
			WithMetadata(errors.WriteConflictMetadata{Attempts: 5}),
		errors.INVALID_SHARES_AMOUNT.New("shares amount must be greater than zero"),
		errors.INVALID_ADDRESS.New("bad key").
			WithMetadata(errors.AddressMetadata{Field: "buyer", Value: "xyz"}),
		errors.FAUCET_DISABLED.New("faucet disabled"),
		errors.INVALID_REQUEST.New("malformed body").
			WithMetadata(errors.RequestMetadata{Reason: "unexpected EOF"}),
		errors.UNAUTHENTICATED.New("missing macaroon"),
		errors.PERMISSION_DENIED.New("macaroon not authorized").
			WithMetadata(errors.RequestMetadata{Reason: "verification failed"}),
	}
}

func TestErrorFixtures(t *testing.T) {
	seen := make(map[uint16]string)
	for _, err := range generateErrorFixtures() {
		require.NotNil(t, err)
		require.NotEmpty(t, err.Error())
		require.NotEmpty(t, err.CodeName())
		require.NotEmpty(t, err.Message())
		require.NotNil(t, err.Log())

		name, ok := seen[err.Code()]
		require.False(t, ok, "code %d used by both %s and %s", err.Code(), name, err.CodeName())
		seen[err.Code()] = err.CodeName()
	}
}

func TestErrorMetadata(t *testing.T) {
	err := errors.OVERSOLD.New("not enough shares left").
		WithMetadata(errors.OversoldMetadata{
			Property: "prop", Requested: 2, SharesSold: 9, TotalShares: 10,
		})

	md := err.Metadata()
	require.Equal(t, "prop", md["property"])
	require.Equal(t, "2", md["requested"])
	require.Equal(t, "9", md["shares_sold"])
	require.Equal(t, "10", md["total_shares"])
	require.Equal(t, grpccodes.FailedPrecondition, err.GrpcCode())
	require.Equal(t, errors.ClassValidation, err.Class())
}

func TestCodeIs(t *testing.T) {
	cause := errors.TRANSFER_REJECTED.New("insufficient balance")
	wrapped := fmt.Errorf("buy shares: %w", cause)

	require.True(t, errors.TRANSFER_REJECTED.Is(wrapped))
	require.False(t, errors.OVERSOLD.Is(wrapped))
	require.False(t, errors.OVERSOLD.Is(fmt.Errorf("plain")))
	require.True(t, errors.TRANSFER_REJECTED.Class.Retryable())
	require.False(t, errors.ASSET_MISMATCH.Class.Retryable())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := errors.INTERNAL_ERROR.Wrap(cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "INTERNAL_ERROR (0): disk full", err.Error())
	require.Equal(t, errors.ClassInternal, err.Class())
}
