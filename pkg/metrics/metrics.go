package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "f1telemetry"

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "API requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	ProviderFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_fetch_seconds",
		Help:      "Time spent fetching a provider dataset.",
		Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"dataset"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Provider cache lookups by result.",
	}, []string{"result"})

	LiveScopes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_scopes",
		Help:      "Request scopes currently holding session data.",
	})

	ReleasedObjects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "released_objects_total",
		Help:      "Sessions and tables released at the end of a request.",
	})
)

func init() {
	prometheus.MustRegister(Requests, ProviderFetchDuration, CacheLookups, LiveScopes, ReleasedObjects)
}
