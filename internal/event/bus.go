package event

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/metrics"
)

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
}

var _ Publisher = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *Event),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Event) {
	id := ulid.Make().String()
	ch := make(chan *Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Bus) Publish(e *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// buffer full, drop event for this subscriber
			metrics.EventsDropped.Inc()
			slog.Debug("event dropped", "subscriber", id, "event.type", string(e.Type))
		}
	}
}
