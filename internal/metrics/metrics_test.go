package metrics

import (
	"testing"

	"blakkisvuohi/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	assert.Panics(t, func() { New(reg) })
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())
	bus := events.NewEventBus()
	m.Observe(bus)

	require.NoError(t, bus.PublishJSON(events.EventDrinkRecorded, events.DrinkEventPayload{Count: 2, Milligrams: 24694}))
	require.NoError(t, bus.PublishJSON(events.EventDrinkUndone, events.DrinkEventPayload{Count: 1}))
	require.NoError(t, bus.PublishJSON(events.EventUserRegistered, events.UserEventPayload{UserID: "x"}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DrinksRecorded))
	assert.InDelta(t, 24.694, testutil.ToFloat64(m.AlcoholGrams), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrinksUndone))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersRegistered))
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncError("storage")
	m.IncError("storage")
	m.IncHTTP("/healthz")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("storage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/healthz")))
}
