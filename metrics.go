package googfit

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts outbound activity against the fitness and token endpoints
type Metrics struct {
	CounterRefreshes      prometheus.Counter
	CounterRefreshFailure prometheus.Counter
	CounterRequests       *prometheus.CounterVec
	HistRequestDuration   prometheus.Histogram
}

// NewMetrics registers the collectors with `reg`
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CounterRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "googfit",
			Name:      "token_refreshes_total",
			Help:      "The total number of access token refreshes",
		}),
		CounterRefreshFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "googfit",
			Name:      "token_refresh_failures_total",
			Help:      "The total number of rejected token refreshes",
		}),
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "googfit",
			Name:      "dataset_requests_total",
			Help:      "The total number of dataset requests by status code",
		}, []string{"status"}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "googfit",
			Name:      "dataset_request_duration_seconds",
			Help:      "Duration of dataset requests in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// NewTestMetrics returns metrics backed by a private registry
func NewTestMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

func (m *Metrics) request(status int, secs float64) {
	if m == nil {
		return
	}
	m.CounterRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.HistRequestDuration.Observe(secs)
}

func (m *Metrics) refreshed(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CounterRefreshFailure.Inc()
		return
	}
	m.CounterRefreshes.Inc()
}
