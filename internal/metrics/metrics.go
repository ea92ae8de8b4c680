package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	Notifications  *prometheus.CounterVec
	VideosCreated  prometheus.Counter
	VideosDeleted  prometheus.Counter
	Authorizations prometheus.Counter
	EventFailures  *prometheus.CounterVec
}

// Notification outcomes.
const (
	OutcomeReconciled = "reconciled"
	OutcomeInvalid    = "invalid"
	OutcomeBadSig     = "bad_signature"
	OutcomeUnknown    = "unknown_assembly"
	OutcomeError      = "error"
)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cattube",
			Name:      "notifications_total",
			Help:      "Transcoder notifications received, by outcome.",
		}, []string{"outcome"}),
		VideosCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cattube",
			Name:      "videos_created_total",
			Help:      "Video records created from upload forms.",
		}),
		VideosDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cattube",
			Name:      "videos_deleted_total",
			Help:      "Video records removed by bulk delete.",
		}),
		Authorizations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cattube",
			Name:      "upload_authorizations_total",
			Help:      "Signed upload parameter sets issued.",
		}),
		EventFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cattube",
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be published.",
		}, []string{"event"}),
	}

	reg.MustRegister(m.Notifications, m.VideosCreated, m.VideosDeleted, m.Authorizations, m.EventFailures)
	return m
}
