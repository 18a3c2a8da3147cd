package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reasons a command is dropped before reaching an entity.
const (
	ReasonMalformed      = "malformed"
	ReasonStale          = "stale"
	ReasonUnknownSession = "unknown_session"
	ReasonOverflow       = "overflow"
)

type Metrics struct {
	CommandsDropped *prometheus.CounterVec
	Connections     *prometheus.CounterVec
	SystemPanics    *prometheus.CounterVec
	OutboundDropped prometheus.Counter
	Deaths          prometheus.Counter
	TickDuration    prometheus.Histogram
	Entities        prometheus.Gauge
	Sessions        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "westiny_commands_dropped_total",
				Help: "Client commands discarded before reaching an entity.",
			},
			[]string{"reason"},
		),
		Connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "westiny_connection_events_total",
				Help: "Connection lifecycle events seen by the server.",
			},
			[]string{"kind"},
		),
		SystemPanics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "westiny_system_panics_total",
				Help: "Recovered panics per simulation system.",
			},
			[]string{"system"},
		),
		OutboundDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "westiny_outbound_dropped_total",
				Help: "Outbound messages dropped because the queue was full.",
			},
		),
		Deaths: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "westiny_deaths_total",
				Help: "Player deaths.",
			},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "westiny_tick_duration_seconds",
				Help:    "Time spent running one simulation tick.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
		),
		Entities: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "westiny_entities",
				Help: "Live entities in the store.",
			},
		),
		Sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "westiny_sessions",
				Help: "Live client sessions.",
			},
		),
	}
	reg.MustRegister(
		m.CommandsDropped,
		m.Connections,
		m.SystemPanics,
		m.OutboundDropped,
		m.Deaths,
		m.TickDuration,
		m.Entities,
		m.Sessions,
	)
	return m
}
