package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for processed places and invocations.
const (
	OutcomeOK           = "ok"
	OutcomeError        = "error"
	OutcomeConfigError  = "config_error"
	OutcomeInvalidInput = "invalid_input"
	OutcomeAborted      = "aborted"
)

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kakaomap_upstream_requests_total",
			Help: "Total number of Kakao API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kakaomap_upstream_duration_seconds",
			Help:    "Duration of Kakao API requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	PlacesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kakaomap_places_processed_total",
			Help: "Total number of places streamed to clients by outcome",
		},
		[]string{"outcome"},
	)

	InvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kakaomap_invocations_total",
			Help: "Total number of tool invocations by result",
		},
		[]string{"result"},
	)
)

// Recorder is the narrow surface the search client and pipeline report to.
type Recorder interface {
	Upstream(endpoint string, status int, err error, d time.Duration)
	Place(outcome string)
	Invocation(result string)
}

// Prometheus records into the package-level collectors.
type Prometheus struct{}

func (Prometheus) Upstream(endpoint string, status int, err error, d time.Duration) {
	statusStr := strconv.Itoa(status)
	if err != nil && status == 0 {
		statusStr = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(endpoint, statusStr).Inc()
	UpstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (Prometheus) Place(outcome string) {
	PlacesProcessedTotal.WithLabelValues(outcome).Inc()
}

func (Prometheus) Invocation(result string) {
	InvocationsTotal.WithLabelValues(result).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) Upstream(string, int, error, time.Duration) {}
func (Nop) Place(string)                               {}
func (Nop) Invocation(string)                          {}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
