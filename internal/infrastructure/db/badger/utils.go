package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	maxRetries = 5

	gcInterval = 30 * time.Minute
)

type txKey struct{}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(gcInterval)

		go func() {
			for range ticker.C {
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					!errors.Is(err, badger.ErrNoRewrite) {
					log.WithError(err).Error("failed to run value log gc")
				}
			}
		}()
	}

	return db, nil
}

// parseConfig reads the (baseDir, logger) pair every badger factory receives.
func parseConfig(config []interface{}) (string, badger.Logger, error) {
	if len(config) < 2 {
		return "", nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return "", nil, fmt.Errorf("invalid logger")
		}
	}
	return baseDir, logger, nil
}

// sharedStore returns the store passed as third config item, if any.
func sharedStore(config []interface{}) (*badgerhold.Store, bool, error) {
	if len(config) < 3 || config[2] == nil {
		return nil, false, nil
	}
	store, ok := config[2].(*badgerhold.Store)
	if !ok {
		return nil, false, fmt.Errorf("invalid store")
	}
	return store, true, nil
}

func txFromContext(ctx context.Context) *badger.Txn {
	if ctx == nil {
		return nil
	}
	tx, _ := ctx.Value(txKey{}).(*badger.Txn)
	return tx
}

// TxRunner runs closures inside a single read-write badger transaction.
type TxRunner struct {
	store *badgerhold.Store
}

func NewTxRunner(store *badgerhold.Store) *TxRunner {
	return &TxRunner{store}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Debugf("badger tx conflict, retrying (%d/%d)", attempt, maxRetries)
			time.Sleep(100 * time.Millisecond)
		}

		err = r.store.Badger().Update(func(tx *badger.Txn) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}

	return fmt.Errorf("%w: %s", domain.ErrWriteConflict, err)
}

// RunInReadTx runs fn inside a read-only badger transaction, so every read
// sees the same snapshot.
func (r *TxRunner) RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return r.store.Badger().View(func(tx *badger.Txn) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// txStore routes every operation through the transaction carried by ctx, if
// any, so that repositories sharing a store commit together.
type txStore struct {
	*badgerhold.Store
}

func (s txStore) get(ctx context.Context, key, result interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxGet(tx, key, result)
	}
	return s.Get(key, result)
}

func (s txStore) find(ctx context.Context, result interface{}, query *badgerhold.Query) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxFind(tx, result, query)
	}
	return s.Find(result, query)
}

func (s txStore) insert(ctx context.Context, key, data interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxInsert(tx, key, data)
	}
	return withRetry(func() error { return s.Insert(key, data) })
}

func (s txStore) update(ctx context.Context, key, data interface{}) error {
	if tx := txFromContext(ctx); tx != nil {
		return s.TxUpdate(tx, key, data)
	}
	return withRetry(func() error { return s.Update(key, data) })
}

func withRetry(op func() error) error {
	err := op()
	attempts := 1
	for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
		time.Sleep(100 * time.Millisecond)
		err = op()
		attempts++
	}
	return err
}
