package domain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DefaultProgramID is the program under which listing addresses have always been derived.
const DefaultProgramID = "7yJmwoLXxkcR7FakNNDLkueWPZ78xxJvgoWhmYC26Zgi"

const (
	propertySeed   = "property"
	vaultSeed      = "vault"
	investmentSeed = "investment"

	// MaxSeedLen is the longest single seed accepted by program address derivation.
	MaxSeedLen = solana.MaxSeedLength
)

// AddressDeriver computes the deterministic storage address of every record kind.
// Derivation is a pure function of (record-kind tag, semantic key bytes), so the
// same inputs always land on the same address and no lookup index is needed.
type AddressDeriver struct {
	programID solana.PublicKey
}

func NewAddressDeriver(programID string) (*AddressDeriver, error) {
	if programID == "" {
		programID = DefaultProgramID
	}
	key, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id %s: %w", programID, err)
	}
	return &AddressDeriver{key}, nil
}

func (d *AddressDeriver) ProgramID() string {
	return d.programID.String()
}

// Property derives the registry entry address from the listing name.
func (d *AddressDeriver) Property(name string) (string, uint8, error) {
	if len(name) > MaxSeedLen {
		return "", 0, fmt.Errorf("name exceeds %d bytes", MaxSeedLen)
	}
	return d.derive([]byte(propertySeed), []byte(name))
}

// Vault derives the custody account address from the property address.
func (d *AddressDeriver) Vault(property string) (string, uint8, error) {
	propertyKey, err := solana.PublicKeyFromBase58(property)
	if err != nil {
		return "", 0, fmt.Errorf("invalid property address %s: %w", property, err)
	}
	return d.derive([]byte(vaultSeed), propertyKey.Bytes())
}

// Position derives the investor position address from (property, owner).
func (d *AddressDeriver) Position(property, owner string) (string, uint8, error) {
	propertyKey, err := solana.PublicKeyFromBase58(property)
	if err != nil {
		return "", 0, fmt.Errorf("invalid property address %s: %w", property, err)
	}
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return "", 0, fmt.Errorf("invalid owner %s: %w", owner, err)
	}
	return d.derive([]byte(investmentSeed), propertyKey.Bytes(), ownerKey.Bytes())
}

func (d *AddressDeriver) derive(seeds ...[]byte) (string, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return "", 0, err
	}
	return addr.String(), bump, nil
}

// AssociatedTokenAccount returns the default settlement account of owner for mint.
func AssociatedTokenAccount(owner, mint string) (string, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return "", fmt.Errorf("invalid owner %s: %w", owner, err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("invalid mint %s: %w", mint, err)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(ownerKey, mintKey)
	if err != nil {
		return "", err
	}
	return ata.String(), nil
}

// IsValidKey reports whether s is a base58 encoded 32-byte key.
func IsValidKey(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}
