package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metric collectors for the sink.
type Metrics struct {
	// SMTP sessions
	SessionsTotal      prometheus.Counter
	SessionDuration    prometheus.Histogram
	CommandsTotal      *prometheus.CounterVec
	ProtocolErrorsTotal *prometheus.CounterVec

	// Submission
	MessagesStoredTotal prometheus.Counter
	SubmitErrorsTotal   *prometheus.CounterVec
	StoreSize           prometheus.GaugeFunc

	// Subscribers
	SubscriberLagTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics with the given
// registerer. storeSize is polled lazily whenever /metrics is scraped.
func NewMetrics(reg prometheus.Registerer, storeSize func() int) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smtpsink",
			Subsystem: "smtp",
			Name:      "sessions_total",
			Help:      "Total number of accepted SMTP connections.",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smtpsink",
			Subsystem: "smtp",
			Name:      "session_duration_seconds",
			Help:      "Lifetime of an SMTP connection, from accept to close.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smtpsink",
			Subsystem: "smtp",
			Name:      "commands_total",
			Help:      "Total SMTP commands processed, by verb.",
		}, []string{"verb"}),
		ProtocolErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smtpsink",
			Subsystem: "smtp",
			Name:      "protocol_errors_total",
			Help:      "Total protocol-level errors, by kind.",
		}, []string{"kind"}),

		MessagesStoredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smtpsink",
			Subsystem: "store",
			Name:      "messages_stored_total",
			Help:      "Total messages accepted and stored.",
		}),
		SubmitErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smtpsink",
			Subsystem: "store",
			Name:      "submit_errors_total",
			Help:      "Total submission failures, by SubmitError kind.",
		}, []string{"kind"}),
		StoreSize: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "smtpsink",
			Subsystem: "store",
			Name:      "messages_current",
			Help:      "Number of messages currently held in the store.",
		}, func() float64 { return float64(storeSize()) }),

		SubscriberLagTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smtpsink",
			Subsystem: "store",
			Name:      "subscriber_lag_total",
			Help:      "Total number of broadcast values dropped for a slow subscriber.",
		}),
	}
}
