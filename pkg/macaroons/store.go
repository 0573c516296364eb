package macaroons

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"gopkg.in/macaroon-bakery.v2/bakery"
)

const rootKeyLen = 32

var (
	// DefaultRootKeyID is the id of the single root key every macaroon is
	// baked from.
	DefaultRootKeyID = []byte("0")
)

func rootKeyDbKey(id []byte) []byte {
	return append([]byte("rootkey/"), id...)
}

// RootKeyStorage keeps macaroon root keys in a badger db. The default root key
// is generated on first use and reused afterwards, so macaroons baked by an
// earlier run stay valid.
type RootKeyStorage struct {
	db *badger.DB
}

// NewRootKeyStorage opens the key db in dir, or an in-memory one if dir is
// empty.
func NewRootKeyStorage(dir string) (*RootKeyStorage, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open macaroon db: %w", err)
	}
	return &RootKeyStorage{db}, nil
}

// Get implements bakery.RootKeyStore.
func (s *RootKeyStorage) Get(_ context.Context, id []byte) ([]byte, error) {
	var rootKey []byte
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(rootKeyDbKey(id))
		if err != nil {
			return err
		}
		rootKey, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, bakery.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rootKey, nil
}

// RootKey implements bakery.RootKeyStore.
func (s *RootKeyStorage) RootKey(ctx context.Context) ([]byte, []byte, error) {
	id := DefaultRootKeyID
	var rootKey []byte
	err := s.db.Update(func(tx *badger.Txn) error {
		key := rootKeyDbKey(id)
		item, err := tx.Get(key)
		if err == nil {
			rootKey, err = item.ValueCopy(nil)
			return err
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		rootKey = make([]byte, rootKeyLen)
		if _, err := rand.Read(rootKey); err != nil {
			return err
		}
		return tx.Set(key, rootKey)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get root key: %w", err)
	}
	return rootKey, id, nil
}

func (s *RootKeyStorage) Close() error {
	return s.db.Close()
}
