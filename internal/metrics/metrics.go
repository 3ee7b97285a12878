package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const namespace = "httprequest"

var (
	// RequestsTotal counts outbound requests by method and status code.
	// Transport failures are recorded with code "error".
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of outbound HTTP requests",
	}, []string{"method", "code"})

	// RequestDuration observes outbound request latency.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Duration of outbound HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	// PagesTotal counts pages fetched by paginated requests.
	PagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_total",
		Help:      "Total number of pages fetched by paginated requests",
	})

	// ItemErrorsTotal counts failed input items by error kind.
	ItemErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "item_errors_total",
		Help:      "Total number of input items that failed, by error kind",
	}, []string{"kind"})
)

func init() {
	ctrlmetrics.Registry.MustRegister(RequestsTotal, RequestDuration, PagesTotal, ItemErrorsTotal)
}

// ObserveRequest records one finished request. A code of 0 means no response was received.
func ObserveRequest(method string, code int, elapsed time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	RequestsTotal.WithLabelValues(method, label).Inc()
	RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObservePage records one fetched page.
func ObservePage() {
	PagesTotal.Inc()
}

// ObserveItemError records a failed item.
func ObserveItemError(kind string) {
	ItemErrorsTotal.WithLabelValues(kind).Inc()
}
