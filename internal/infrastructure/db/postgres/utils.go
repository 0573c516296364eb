package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/infrastructure/db/postgres/sqlc/queries"
)

const (
	driverName = "postgres"
	maxRetries = 5
)

type txKey struct{}

type readOnlyKey struct{}

// OpenDb opens a connection with the DB.
// If the operation fails when trying to establish a connection and the `autoCreate` flag is set to
// true, OpenDb will try to create the database set in the DSN.
func OpenDb(dsn string, autoCreate bool) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := connectDB(ctx, db, dsn, autoCreate); err != nil {
		return nil, fmt.Errorf("unable to establish connection with db: %v", err)
	}

	return db, nil
}

// connectDB pings the db since sql.Open only validates its arguments. If the
// database does not exist and autoCreate is set, it is created first.
func connectDB(ctx context.Context, db *sql.DB, dsn string, autoCreate bool) error {
	if err := db.PingContext(ctx); err != nil {
		var dbErr *pq.Error
		// 3D000: invalid_catalog_name.
		if errors.As(err, &dbErr) && dbErr.Code == "3D000" && autoCreate {
			log.Info("Postgres database does not exist, creating it...")

			if err = createDB(ctx, dsn); err != nil {
				return err
			}

			return connectDB(ctx, db, dsn, false)
		}

		return err
	}

	return nil
}

// createDB creates the database named in a URL-format dsn.
func createDB(ctx context.Context, dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("cannot auto-create database unless the DSN uses URL format")
	}

	parsedURL, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsedURL.Path, "/")
	if dbName == "" {
		return fmt.Errorf("cannot auto-create when database name is empty")
	}
	parsedURL.Path = ""

	rootDB, err := sql.Open(driverName, parsedURL.String())
	if err != nil {
		return err
	}
	// nolint:all
	defer rootDB.Close()

	query := "CREATE DATABASE " + pq.QuoteIdentifier(dbName)
	log.Infof("Executing query '%s'", query)
	if _, err := rootDB.ExecContext(ctx, query); err != nil {
		return err
	}

	return nil
}

// TxRunner runs closures inside a single postgres transaction. Records read
// through a repository inside the transaction are locked until it ends.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, nil, fn)
}

// RunInReadTx runs fn in a read-only repeatable read transaction: every
// query sees the snapshot taken at its first statement and takes no row
// locks.
func (r *TxRunner) RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (r *TxRunner) run(
	ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error,
) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			log.Debugf("postgres tx conflict, retrying (%d/%d)", attempt, maxRetries)
			time.Sleep(100 * time.Millisecond)
		}

		tx, err := r.db.BeginTx(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		txCtx := context.WithValue(ctx, txKey{}, tx)
		if opts != nil && opts.ReadOnly {
			txCtx = context.WithValue(txCtx, readOnlyKey{}, true)
		}
		if err := fn(txCtx); err != nil {
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

// querier returns q bound to the transaction carried by ctx, if any, and
// whether reads should lock the rows they select.
func querier(ctx context.Context, q *queries.Queries) (*queries.Queries, bool) {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		readOnly, _ := ctx.Value(readOnlyKey{}).(bool)
		return q.WithTx(tx), !readOnly
	}
	return q, false
}

func withTx(ctx context.Context, q *queries.Queries) *queries.Queries {
	qtx, _ := querier(ctx, q)
	return qtx
}

// isConflictError reports serialization failures and deadlocks.
func isConflictError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
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
