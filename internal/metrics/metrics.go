package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	ListingReads        *prometheus.CounterVec
	ListingMutations    *prometheus.CounterVec
	DatasetPersists     *prometheus.CounterVec
	AppointmentsCreated *prometheus.CounterVec
	AuthAttempts        *prometheus.CounterVec
	NotifyRequests      *prometheus.CounterVec
	NotifyLatency       *prometheus.HistogramVec
	Errors              *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			ListingReads: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listing_reads_total",
				Help:      "Total listing reads served, by collection.",
			}, []string{"collection"}),
			ListingMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listing_mutations_total",
				Help:      "Total listing mutations, by collection and operation.",
			}, []string{"collection", "op"}),
			DatasetPersists: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_persists_total",
				Help:      "Full dataset writes to the local store, by outcome.",
			}, []string{"outcome"}),
			AppointmentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "appointments_created_total",
				Help:      "Appointments created, by appointment type.",
			}, []string{"type"}),
			AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Admin login attempts, by outcome.",
			}, []string{"outcome"}),
			NotifyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notify_requests_total",
				Help:      "Outbound lead notifications, by channel and status.",
			}, []string{"channel", "status"}),
			NotifyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notify_request_duration_seconds",
				Help:      "Latency distribution for outbound notifications.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"channel", "status"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.ListingReads,
			metricsInstance.ListingMutations,
			metricsInstance.DatasetPersists,
			metricsInstance.AppointmentsCreated,
			metricsInstance.AuthAttempts,
			metricsInstance.NotifyRequests,
			metricsInstance.NotifyLatency,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
