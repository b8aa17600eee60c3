package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	calls := 0
	bus.Subscribe(EventDrinkRecorded, func(event *Event) error {
		received = event
		calls++
		return nil
	})

	err := bus.PublishJSON(EventDrinkRecorded, DrinkEventPayload{UserID: "abc", Count: 1, Milligrams: 12347})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.NotNil(t, received)
	assert.Equal(t, EventDrinkRecorded, received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded DrinkEventPayload
	require.NoError(t, received.Decode(&decoded))
	assert.Equal(t, "abc", decoded.UserID)
	assert.Equal(t, 12347, decoded.Milligrams)
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	err := bus.Publish(&Event{Type: "event"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, count1)
	assert.Equal(t, 1, count2)
}

func TestEventBus_NoSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NoError(t, bus.Publish(&Event{Type: "unknown"}))
	assert.NoError(t, bus.PublishJSON("unknown", nil))
}

func TestEventBus_Nil(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventUserRegistered, UserEventPayload{UserID: "x"}))
}

func TestEventBus_BadPayload(t *testing.T) {
	bus := NewEventBus()
	assert.Error(t, bus.PublishJSON("x", make(chan int)))
}
