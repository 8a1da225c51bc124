package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/pkg/messaging"
)

// Event is a named notification with a free-form payload. Sweeps publish one
// per mutated entity; the dispatcher publishes one per delivery attempt.
type Event struct {
	Name     string                 `json:"name"`
	EntityID uuid.UUID              `json:"entity_id"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	At       time.Time              `json:"at"`
}

// Sink is the publish side of the notification surface. Implementations must
// tolerate concurrent publishers.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// BrokerSink publishes events as JSON on a message broker topic.
type BrokerSink struct {
	broker messaging.Broker
	topic  string
}

func NewBrokerSink(broker messaging.Broker, topic string) *BrokerSink {
	return &BrokerSink{broker: broker, topic: topic}
}

func (s *BrokerSink) Publish(ctx context.Context, event Event) error {
	return s.broker.Publish(ctx, s.topic, event)
}

// MemorySink records events in memory. Used in tests and single-process runs.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Named returns published events with the given name, in publish order.
func (s *MemorySink) Named(name string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
