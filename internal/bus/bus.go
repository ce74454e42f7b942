package bus

import (
	"log/slog"
	"sync"
	"time"
)

// Event is a single observation published by a session.
// Subject is the meeting ID the event concerns.
type Event struct {
	Name      string      `json:"event_type"`
	Subject   string      `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Publisher lets components broadcast events to subscribers
// (the WebSocket fanout, the remote sink, the index).
type Publisher interface {
	Subscribe() chan Event
	Unsubscribe(ch chan Event)
	Broadcast(evt Event)
}

// Broker is the in-process Publisher. Broadcast never blocks:
// a subscriber that falls behind drops events.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Broker) Broadcast(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			slog.Debug("bus subscriber lagging, event dropped", "event", evt.Name)
		}
	}
}
