package watermilldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/infrastructure/db/eventbus"
)

const (
	idMetadataKey   = "record_id"
	typeMetadataKey = "event_type"
)

// eventRepository appends events as watermill messages to one SQL table per
// topic and reads a record's history back from that table.
type eventRepository struct {
	publisher message.Publisher
	db        *sql.DB
	handlers  *eventbus.Handlers
}

// NewEventRepository stores events through publisher. db must be the
// database publisher writes to.
func NewEventRepository(publisher message.Publisher, db *sql.DB) domain.EventRepository {
	return &eventRepository{publisher, db, eventbus.NewHandlers()}
}

func (r *eventRepository) Save(
	ctx context.Context, topic string, id string, events []domain.Event,
) error {
	msgs := make([]*message.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize %s event: %w", event.GetType(), err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(idMetadataKey, id)
		msg.Metadata.Set(typeMetadataKey, event.GetType().String())
		msgs = append(msgs, msg)
	}
	if err := r.publisher.Publish(topic, msgs...); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}

	history, err := r.ListEvents(ctx, topic, id)
	if err != nil {
		log.WithError(err).Error("failed to dispatch saved events")
		return nil
	}
	r.handlers.Dispatch(topic, history)
	return nil
}

func (r *eventRepository) ListEvents(
	ctx context.Context, topic, id string,
) ([]domain.Event, error) {
	query := fmt.Sprintf(
		`SELECT payload FROM %s WHERE metadata->>'%s' = $1 ORDER BY "offset" ASC`,
		pq.QuoteIdentifier("watermill_"+topic), idMetadataKey,
	)
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s/%s: %w", topic, id, err)
	}
	// nolint
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event, err := domain.DecodeEvent(payload)
		if err != nil {
			log.WithError(err).Warnf("failed to deserialize event: %s", string(payload))
			continue
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events for %s/%s: %w", topic, id, err)
	}
	return events, nil
}

func (r *eventRepository) RegisterEventsHandler(
	topic string, handler func(events []domain.Event),
) {
	r.handlers.Register(topic, handler)
}

func (r *eventRepository) ClearRegisteredHandlers(topics ...string) {
	r.handlers.Clear(topics...)
}

func (r *eventRepository) Close() {
	// nolint:all
	r.publisher.Close()
}
