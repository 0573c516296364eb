package pgdb

import (
	"fmt"

	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/solestate/estated/internal/core/domain"
	watermilldb "github.com/solestate/estated/internal/infrastructure/db/watermill"
)

// NewEventRepository publishes events to per-topic watermill tables in db.
func NewEventRepository(config ...interface{}) (domain.EventRepository, error) {
	db, err := parseDb(config, "event")
	if err != nil {
		return nil, err
	}

	publisher, err := watermillsql.NewPublisher(
		watermillsql.BeginnerFromStdSQL(db),
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		watermilldb.NewLogger(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	return watermilldb.NewEventRepository(publisher, db), nil
}
