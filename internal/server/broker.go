package server

import (
	"encoding/json"
	"sync"

	"github.com/terraplay/geoquiz/internal/geoquiz"
)

// Directive is one presentation command pushed to SSE subscribers. Type
// selects which of the optional fields are meaningful.
type Directive struct {
	Type     string               `json:"type"` // render, highlight, marker, flyTo, notify
	Phase    geoquiz.Phase        `json:"phase,omitempty"`
	Round    *RoundView           `json:"round,omitempty"`
	RegionID string               `json:"regionId,omitempty"`
	Style    string               `json:"style,omitempty"`
	Coords   *geoquiz.Coordinates `json:"coords,omitempty"`
	Zoom     int                  `json:"zoom,omitempty"`
	Message  string               `json:"message,omitempty"`
	Severity string               `json:"severity,omitempty"`
}

// Broker is an in-process pub/sub for presentation directives. The game is
// single-player, but every open tab gets its own subscription.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded directives.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the subscriber set.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends a directive to all subscribers.
func (b *Broker) Publish(d Directive) {
	data, _ := json.Marshal(d)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
