package metrics

import (
	"blakkisvuohi/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blakkisvuohi"

type Metrics struct {
	UpdatesProcessed prometheus.Counter
	UpdateDuration   prometheus.Histogram
	RateLimited      prometheus.Counter
	CommandsTotal    *prometheus.CounterVec
	FlowsAbandoned   *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec
	SendRetries      prometheus.Counter
	DrinksRecorded   prometheus.Counter
	DrinksUndone     prometheus.Counter
	AlcoholGrams     prometheus.Counter
	UsersRegistered  prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpdatesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_processed_total",
			Help:      "Telegram updates handled by the bot loop.",
		}),
		UpdateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_processing_seconds",
			Help:      "Time spent processing one update.",
			Buckets:   prometheus.DefBuckets,
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-sender rate limit.",
		}),
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Command invocations by outcome.",
		}, []string{"command", "outcome"}),
		FlowsAbandoned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_abandoned_total",
			Help:      "Flows dropped because a handler failed or panicked.",
		}, []string{"command", "reason"}),
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by component.",
		}, []string{"component"}),
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound Telegram calls by kind.",
		}, []string{"kind"}),
		SendRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_retries_total",
			Help:      "Outbound calls retried after a rate limit response.",
		}),
		DrinksRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drinks_recorded_total",
			Help:      "Drinks written to the ledger.",
		}),
		DrinksUndone: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drinks_undone_total",
			Help:      "Drinks removed by undo.",
		}),
		AlcoholGrams: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alcohol_grams_total",
			Help:      "Grams of alcohol logged.",
		}),
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Completed registrations.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		}, []string{"endpoint"}),
	}
}

// Observe keeps the ledger counters in sync with domain events.
func (m *Metrics) Observe(bus *events.EventBus) {
	bus.Subscribe(events.EventDrinkRecorded, func(e *events.Event) error {
		var p events.DrinkEventPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		m.DrinksRecorded.Add(float64(p.Count))
		m.AlcoholGrams.Add(float64(p.Milligrams) / 1000)
		return nil
	})
	bus.Subscribe(events.EventDrinkUndone, func(_ *events.Event) error {
		m.DrinksUndone.Inc()
		return nil
	})
	bus.Subscribe(events.EventUserRegistered, func(_ *events.Event) error {
		m.UsersRegistered.Inc()
		return nil
	})
}

func (m *Metrics) IncError(component string) {
	m.ErrorsTotal.WithLabelValues(component).Inc()
}

func (m *Metrics) IncHTTP(endpoint string) {
	m.HTTPRequests.WithLabelValues(endpoint).Inc()
}
