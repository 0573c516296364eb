package macaroons

import (
	"context"
	"encoding/hex"
	"fmt"

	"gopkg.in/macaroon-bakery.v2/bakery"
	"gopkg.in/macaroon.v2"
)

// Service bakes macaroons granting a set of operations and checks that a
// presented macaroon grants the operations a request needs.
type Service struct {
	*bakery.Bakery

	store *RootKeyStorage
}

func NewService(store *RootKeyStorage, location string) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("missing root key storage")
	}
	b := bakery.New(bakery.BakeryParams{
		Location:     location,
		RootKeyStore: store,
	})
	return &Service{b, store}, nil
}

// BakeMacaroon returns the binary encoding of a new macaroon granting ops.
func (s *Service) BakeMacaroon(ctx context.Context, ops []bakery.Op) ([]byte, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("missing permissions")
	}
	mac, err := s.Oven.NewMacaroon(ctx, bakery.LatestVersion, nil, ops...)
	if err != nil {
		return nil, err
	}
	return mac.M().MarshalBinary()
}

// ValidateMacaroon checks that the hex encoded macaroon grants every op in
// required.
func (s *Service) ValidateMacaroon(
	ctx context.Context, required []bakery.Op, encoded string,
) error {
	buf, err := hex.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("macaroon is not hex encoded: %w", err)
	}
	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(buf); err != nil {
		return fmt.Errorf("failed to parse macaroon: %w", err)
	}

	if _, err := s.Checker.Auth(macaroon.Slice{mac}).Allow(ctx, required...); err != nil {
		return fmt.Errorf("macaroon not authorized: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.store.Close()
}
