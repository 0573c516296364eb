package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/solestate/estated/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const ledgerStoreDir = "ledger"

type PropertyRepository struct {
	store txStore
}

type propertyDTO struct {
	domain.Property
	StoredAt int64
}

// NewPropertyRepository opens the ledger store under baseDir (in-memory if
// empty). The store is shared with the position and account repositories
// through GetStore so that a transition commits all its records at once.
func NewPropertyRepository(config ...interface{}) (domain.PropertyRepository, error) {
	store, ok, err := sharedStore(config)
	if err != nil {
		return nil, err
	}
	if ok {
		return &PropertyRepository{txStore{store}}, nil
	}

	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, ledgerStoreDir)
	}
	store, err = createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %s", err)
	}

	return &PropertyRepository{txStore{store}}, nil
}

func (r *PropertyRepository) GetStore() *badgerhold.Store {
	return r.store.Store
}

func (r *PropertyRepository) AddProperty(ctx context.Context, property domain.Property) error {
	dto := propertyDTO{property, time.Now().Unix()}
	if err := r.store.insert(ctx, property.Address, dto); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: property %s", domain.ErrRecordExists, property.Address)
		}
		return fmt.Errorf("failed to add property %s: %w", property.Address, err)
	}
	return nil
}

func (r *PropertyRepository) GetProperty(
	ctx context.Context, address string,
) (*domain.Property, error) {
	var dto propertyDTO
	if err := r.store.get(ctx, address, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, address)
		}
		return nil, fmt.Errorf("failed to get property %s: %w", address, err)
	}
	return &dto.Property, nil
}

func (r *PropertyRepository) UpdateProperty(ctx context.Context, property domain.Property) error {
	dto := propertyDTO{property, time.Now().Unix()}
	if err := r.store.update(ctx, property.Address, dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, property.Address)
		}
		return fmt.Errorf("failed to update property %s: %w", property.Address, err)
	}
	return nil
}

func (r *PropertyRepository) ListProperties(ctx context.Context) ([]domain.Property, error) {
	var dtos []propertyDTO
	if err := r.store.find(ctx, &dtos, nil); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	properties := make([]domain.Property, 0, len(dtos))
	for _, dto := range dtos {
		properties = append(properties, dto.Property)
	}
	sort.SliceStable(properties, func(i, j int) bool {
		if properties[i].CreatedAt == properties[j].CreatedAt {
			return properties[i].Name < properties[j].Name
		}
		return properties[i].CreatedAt < properties[j].CreatedAt
	})
	return properties, nil
}

func (r *PropertyRepository) Close() {
	// nolint:all
	r.store.Close()
}
