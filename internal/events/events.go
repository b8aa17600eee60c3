package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventUserRegistered = "user_registered"
	EventUserUpdated    = "user_updated"
	EventDrinkRecorded  = "drink_recorded"
	EventDrinkUndone    = "drink_undone"
	EventGroupJoined    = "group_joined"
	EventGroupLeft      = "group_left"
)

// DrinkEventPayload describes drinks written to or removed from a ledger. UserID
// is the hashed id.
type DrinkEventPayload struct {
	UserID      string    `json:"user_id"`
	Count       int       `json:"count"`
	Milligrams  int       `json:"mg"`
	Description string    `json:"description,omitempty"`
	Backdated   bool      `json:"backdated,omitempty"`
	At          time.Time `json:"at"`
}

type UserEventPayload struct {
	UserID string `json:"user_id"`
	Gender string `json:"gender,omitempty"`
}

type GroupEventPayload struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs subscribers synchronously and returns the first handler error.
// Every handler is called even if an earlier one fails.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var first error
	for _, handler := range handlers {
		if err := handler(event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PublishJSON serializes the payload and publishes an event. A nil bus drops
// the event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
}
