package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	EventsProcessed *prometheus.CounterVec
	EventsIgnored   prometheus.Counter
	EventsStale     prometheus.Counter
	EventsFailed    prometheus.Counter
	Actions         *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	return &Metrics{
		Registry: registry,
		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subtrack_webhook_events_processed_total",
			Help: "Processor events applied to a subscription record, by event type.",
		}, []string{"type"}),
		EventsIgnored: factory.NewCounter(prometheus.CounterOpts{
			Name: "subtrack_webhook_events_ignored_total",
			Help: "Processor events with no handler, acknowledged without a record write.",
		}),
		EventsStale: factory.NewCounter(prometheus.CounterOpts{
			Name: "subtrack_webhook_events_stale_total",
			Help: "Processor events dropped because the record already reflects newer state.",
		}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "subtrack_webhook_events_failed_total",
			Help: "Processor events whose handling returned an error.",
		}),
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subtrack_actions_total",
			Help: "User-initiated subscription actions, by action and outcome.",
		}, []string{"action", "outcome"}),
	}
}
