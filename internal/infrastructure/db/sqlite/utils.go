package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/infrastructure/db/sqlite/sqlc/queries"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	maxRetries = 5
)

type txKey struct{}

// OpenDb opens the sqlite file at dbPath, creating its parent directory.
// Write transactions take the database lock on BEGIN so that a
// read-then-write transition cannot interleave with another writer.
func OpenDb(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %v", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"+
			"&_pragma=journal_mode(WAL)",
		dbPath,
	)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	return db, nil
}

// TxRunner runs closures inside a single sql transaction shared by every
// repository built on the same db.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			log.Debugf("sqlite tx conflict, retrying (%d/%d)", attempt, maxRetries)
			time.Sleep(100 * time.Millisecond)
		}

		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			if isConflictError(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
			//nolint:all
			tx.Rollback()

			if isConflictError(err) {
				lastErr = err
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if isConflictError(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	}

	return fmt.Errorf("%w: %s", domain.ErrWriteConflict, lastErr)
}

// RunInReadTx runs fn in a regular transaction: with immediate locking and a
// single connection no writer can commit while fn reads.
func (r *TxRunner) RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.RunInTx(ctx, fn)
}

// querier returns q bound to the transaction carried by ctx, if any.
func querier(ctx context.Context, q *queries.Queries) *queries.Queries {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return q.WithTx(tx)
	}
	return q
}

func isConflictError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "database is locked") ||
		strings.Contains(errMsg, "database table is locked") ||
		strings.Contains(errMsg, "busy")
}

func parseDb(config []interface{}, kind string) (*sql.DB, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open %s repository: expected *sql.DB but got %T", kind, config[0],
		)
	}
	return db, nil
}
