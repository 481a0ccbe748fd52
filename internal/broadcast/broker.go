// Package broadcast fans committed game events out to connected clients.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/playperu/harvest/internal/harvest"
)

type EventType string

const (
	// EventState carries the full game state after a commit.
	EventState EventType = "state"
	// EventReset tells clients to discard their identity and rejoin.
	EventReset EventType = "reset"
	// EventWinner triggers the winner reveal. It carries the final state.
	EventWinner EventType = "winner"
)

type Event struct {
	Type  EventType          `json:"type"`
	State *harvest.GameState `json:"state,omitempty"`
}

// BufferSize is how many undelivered events a subscriber may hold before
// it is disconnected.
const BufferSize = 16

// Broker is an in-process pub/sub for the single game room. Events reach
// every subscriber in publish order. A subscriber that falls BufferSize
// events behind has its channel closed; it is expected to reconnect and
// fetch the state again.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	closed bool
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subs:   make(map[chan []byte]struct{}),
		logger: logger,
	}
}

// Subscribe returns a channel of JSON-encoded events and a function that
// removes the subscription. The channel is closed when the subscription
// ends for any reason.
func (b *Broker) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, BufferSize)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() { b.drop(ch) }
}

func (b *Broker) drop(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish sends an event to all subscribers without blocking.
func (b *Broker) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("encoding event", "type", event.Type, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			delete(b.subs, ch)
			close(ch)
			b.logger.Warn("dropping slow subscriber", "type", event.Type)
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription. Later subscriptions are closed at once.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
