package badgerdb

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/infrastructure/db/eventbus"
	"github.com/timshannon/badgerhold/v4"
)

const eventStoreDir = "events"

type eventDTO struct {
	Topic     string
	Id        string
	Type      domain.EventType
	Payload   []byte
	Timestamp int64
}

type eventRepository struct {
	store    *badgerhold.Store
	handlers *eventbus.Handlers
}

func NewEventRepository(config ...interface{}) (domain.EventRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, eventStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %s", err)
	}

	return &eventRepository{store, eventbus.NewHandlers()}, nil
}

func (r *eventRepository) Save(
	ctx context.Context, topic string, id string, events []domain.Event,
) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event: %w", err)
		}
		dto := eventDTO{
			Topic:     topic,
			Id:        id,
			Type:      event.GetType(),
			Payload:   payload,
			Timestamp: time.Now().UnixNano(),
		}
		if err := withRetry(func() error {
			return r.store.Insert(badgerhold.NextSequence(), dto)
		}); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
	}

	history, err := r.ListEvents(ctx, topic, id)
	if err != nil {
		log.WithError(err).Error("failed to dispatch saved events")
		return nil
	}
	r.handlers.Dispatch(topic, history)
	return nil
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
	r.store.Close()
}

func (r *eventRepository) ListEvents(
	_ context.Context, topic, id string,
) ([]domain.Event, error) {
	var dtos []eventDTO
	query := badgerhold.Where("Topic").Eq(topic).And("Id").Eq(id).SortBy("Timestamp")
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, fmt.Errorf("failed to query events for %s/%s: %w", topic, id, err)
	}

	events := make([]domain.Event, 0, len(dtos))
	for _, dto := range dtos {
		event, err := domain.DecodeEvent(dto.Payload)
		if err != nil {
			log.WithError(err).Warnf("failed to deserialize event: %s", string(dto.Payload))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
