package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
	badgerdb "github.com/solestate/estated/internal/infrastructure/db/badger"
	pgdb "github.com/solestate/estated/internal/infrastructure/db/postgres"
	sqlitedb "github.com/solestate/estated/internal/infrastructure/db/sqlite"
)

//go:embed sqlite/migration/*
var migrations embed.FS

//go:embed postgres/migration/*
var pgMigration embed.FS

var (
	eventStoreTypes = map[string]func(...interface{}) (domain.EventRepository, error){
		"badger":   badgerdb.NewEventRepository,
		"postgres": pgdb.NewEventRepository,
	}
	propertyStoreTypes = map[string]func(...interface{}) (domain.PropertyRepository, error){
		"badger":   badgerdb.NewPropertyRepository,
		"sqlite":   sqlitedb.NewPropertyRepository,
		"postgres": pgdb.NewPropertyRepository,
	}
	positionStoreTypes = map[string]func(...interface{}) (domain.PositionRepository, error){
		"badger":   badgerdb.NewPositionRepository,
		"sqlite":   sqlitedb.NewPositionRepository,
		"postgres": pgdb.NewPositionRepository,
	}
	accountStoreTypes = map[string]func(...interface{}) (domain.AccountRepository, error){
		"badger":   badgerdb.NewAccountRepository,
		"sqlite":   sqlitedb.NewAccountRepository,
		"postgres": pgdb.NewAccountRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type service struct {
	eventStore    domain.EventRepository
	propertyStore domain.PropertyRepository
	positionStore domain.PositionRepository
	accountStore  domain.AccountRepository
	txRunner      txRunner
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	eventStoreFactory, ok := eventStoreTypes[config.EventStoreType]
	if !ok {
		return nil, fmt.Errorf("event store type not supported")
	}
	propertyStoreFactory, ok := propertyStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	positionStoreFactory, ok := positionStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	accountStoreFactory, ok := accountStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	var eventStore domain.EventRepository
	var propertyStore domain.PropertyRepository
	var positionStore domain.PositionRepository
	var accountStore domain.AccountRepository
	var runner txRunner
	var err error

	switch config.EventStoreType {
	case "badger":
		eventStore, err = eventStoreFactory(config.EventStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %s", err)
		}
	case "postgres":
		db, err := openPostgres(config.EventStoreConfig)
		if err != nil {
			return nil, err
		}
		eventStore, err = eventStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %s", err)
		}
	default:
		return nil, fmt.Errorf("unknown event store db type")
	}

	switch config.DataStoreType {
	case "badger":
		if len(config.DataStoreConfig) != 2 {
			return nil, fmt.Errorf("invalid data store config for badger")
		}
		propertyStore, err = propertyStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open property store: %s", err)
		}
		// Positions and accounts share the property store so a transition
		// commits all of its records in one badger transaction.
		badgerPropertyRepo, ok := propertyStore.(*badgerdb.PropertyRepository)
		if !ok {
			return nil, fmt.Errorf("failed to get badger property repository")
		}
		store := badgerPropertyRepo.GetStore()
		sharedConfig := append(config.DataStoreConfig[:2:2], store)

		positionStore, err = positionStoreFactory(sharedConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open position store: %w", err)
		}
		accountStore, err = accountStoreFactory(sharedConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open account store: %w", err)
		}
		runner = badgerdb.NewTxRunner(store)

	case "postgres":
		db, err := openPostgres(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}

		pgDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres migration driver: %s", err)
		}

		source, err := iofs.New(pgMigration, "postgres/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed postgres migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "postgres", pgDriver)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run postgres migrations: %s", err)
		}

		if propertyStore, positionStore, accountStore, err = openSqlStores(
			db, propertyStoreFactory, positionStoreFactory, accountStoreFactory,
		); err != nil {
			return nil, err
		}
		runner = pgdb.NewTxRunner(db)

	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			return nil, fmt.Errorf("invalid data store config")
		}

		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}

		dbFile := filepath.Join(baseDir, sqliteDbFile)
		db, err := sqlitedb.OpenDb(dbFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %s", err)
		}

		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}

		source, err := iofs.New(migrations, "sqlite/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "estatedb", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run migrations: %s", err)
		}

		if propertyStore, positionStore, accountStore, err = openSqlStores(
			db, propertyStoreFactory, positionStoreFactory, accountStoreFactory,
		); err != nil {
			return nil, err
		}
		runner = sqlitedb.NewTxRunner(db)
	}

	log.Debugf(
		"opened %s data store and %s event store", config.DataStoreType, config.EventStoreType,
	)

	return &service{
		eventStore:    eventStore,
		propertyStore: propertyStore,
		positionStore: positionStore,
		accountStore:  accountStore,
		txRunner:      runner,
	}, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventStore
}

func (s *service) Properties() domain.PropertyRepository {
	return s.propertyStore
}

func (s *service) Positions() domain.PositionRepository {
	return s.positionStore
}

func (s *service) Accounts() domain.AccountRepository {
	return s.accountStore
}

func (s *service) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.txRunner.RunInTx(ctx, fn)
}

func (s *service) RunInReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.txRunner.RunInReadTx(ctx, fn)
}

func (s *service) Close() {
	s.eventStore.Close()
	s.positionStore.Close()
	s.accountStore.Close()
	s.propertyStore.Close()
}

func openPostgres(config []interface{}) (*sql.DB, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid data store config for postgres")
	}

	dsn, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid DSN for postgres")
	}

	autoCreate, ok := config[1].(bool)
	if !ok {
		return nil, fmt.Errorf("invalid autocreate flag for postgres")
	}

	db, err := pgdb.OpenDb(dsn, autoCreate)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %s", err)
	}
	return db, nil
}

func openSqlStores(
	db *sql.DB,
	propertyStoreFactory func(...interface{}) (domain.PropertyRepository, error),
	positionStoreFactory func(...interface{}) (domain.PositionRepository, error),
	accountStoreFactory func(...interface{}) (domain.AccountRepository, error),
) (domain.PropertyRepository, domain.PositionRepository, domain.AccountRepository, error) {
	propertyStore, err := propertyStoreFactory(db)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open property store: %s", err)
	}
	positionStore, err := positionStoreFactory(db)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open position store: %s", err)
	}
	accountStore, err := accountStoreFactory(db)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open account store: %s", err)
	}
	return propertyStore, positionStore, accountStore, nil
}
