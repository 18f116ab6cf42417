package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpdatesHandled counts inbound Telegram updates by kind of work done.
	UpdatesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistbot_updates_handled_total",
		Help: "Inbound updates handled, labeled by intent.",
	}, []string{"intent"})

	// AIRequests counts individual HTTP calls to the generator.
	AIRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistbot_ai_requests_total",
		Help: "Generator API calls, including retries.",
	})

	// AIRetries counts retried generator calls.
	AIRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistbot_ai_retries_total",
		Help: "Generator calls that were retried after a transient failure.",
	})

	// AIFailures counts generator interactions that failed for good.
	AIFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistbot_ai_failures_total",
		Help: "Generator interactions that exhausted retries or were malformed.",
	})

	// AILatency observes the duration of single generator round trips.
	AILatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistbot_ai_request_duration_seconds",
		Help:    "Latency of individual generator API calls.",
		Buckets: prometheus.DefBuckets,
	})

	// Confirmations counts resolved confirmations by outcome
	// (committed, cancelled, expired, failed).
	Confirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistbot_confirmations_total",
		Help: "Confirmation resolutions by outcome.",
	}, []string{"outcome"})

	// PendingDrafts tracks the number of drafts currently awaiting a decision.
	PendingDrafts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assistbot_pending_drafts",
		Help: "Drafts currently awaiting user confirmation.",
	})
)

// Handler returns the HTTP handler that exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
