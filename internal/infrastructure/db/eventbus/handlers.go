package eventbus

import (
	"sync"

	"github.com/solestate/estated/internal/core/domain"
)

// Handlers holds the event handlers registered per topic. Every event store
// hands a record's full history to Dispatch after each save.
type Handlers struct {
	lock    sync.Mutex
	byTopic map[string][]func(history []domain.Event)
}

func NewHandlers() *Handlers {
	return &Handlers{byTopic: make(map[string][]func([]domain.Event))}
}

func (h *Handlers) Register(topic string, handler func(history []domain.Event)) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.byTopic[topic] = append(h.byTopic[topic], handler)
}

// Clear drops the handlers of the given topics, or of every topic if none is
// given.
func (h *Handlers) Clear(topics ...string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if len(topics) == 0 {
		h.byTopic = make(map[string][]func([]domain.Event))
		return
	}
	for _, topic := range topics {
		delete(h.byTopic, topic)
	}
}

// Dispatch runs each handler of topic in its own goroutine.
func (h *Handlers) Dispatch(topic string, history []domain.Event) {
	if len(history) == 0 {
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	for _, handler := range h.byTopic[topic] {
		go handler(history)
	}
}
