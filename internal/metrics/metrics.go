package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EventsApplied       *prometheus.CounterVec
	EventsFailed        *prometheus.CounterVec
	CallbacksOriginated *prometheus.CounterVec
	CallbacksExhausted  *prometheus.CounterVec
	BlacklistRejections prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_events_applied_total",
			Help: "Manager events applied to the queue store, by event type.",
		}, []string{"event"}),

		EventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_events_failed_total",
			Help: "Manager events dropped after a store write failure, by event type.",
		}, []string{"event"}),

		CallbacksOriginated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callbacks_originated_total",
			Help: "Outbound callback attempts originated, by queue.",
		}, []string{"queue"}),

		CallbacksExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callbacks_exhausted_total",
			Help: "Callback entries removed after reaching the attempt limit, by queue.",
		}, []string{"queue"}),

		BlacklistRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callback_blacklist_rejections_total",
			Help: "Toggle commands rejected because the number is blacklisted.",
		}),
	}

	reg.MustRegister(
		m.EventsApplied,
		m.EventsFailed,
		m.CallbacksOriginated,
		m.CallbacksExhausted,
		m.BlacklistRejections,
	)

	return m
}

// EventHooks returns the callbacks expected by service.EventHooks.
// Centralises the prometheus observation calls so the service stays
// metrics-agnostic.
func (m *Metrics) EventHooks() (onApplied, onFailed func(event string)) {
	onApplied = func(event string) {
		m.EventsApplied.WithLabelValues(event).Inc()
	}
	onFailed = func(event string) {
		m.EventsFailed.WithLabelValues(event).Inc()
	}
	return
}

// SchedulerHooks returns the callbacks expected by worker.SchedulerHooks.
func (m *Metrics) SchedulerHooks() (onOriginated, onExhausted func(queue string)) {
	onOriginated = func(queue string) {
		m.CallbacksOriginated.WithLabelValues(queue).Inc()
	}
	onExhausted = func(queue string) {
		m.CallbacksExhausted.WithLabelValues(queue).Inc()
	}
	return
}

// OnRejected returns the callback wired into the command handler's
// blacklist-rejection path.
func (m *Metrics) OnRejected() func() {
	return func() { m.BlacklistRejections.Inc() }
}
