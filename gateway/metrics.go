package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes
const (
	OutcomeOK           = "ok"
	OutcomeRetriedOK    = "retried_ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeAPIError     = "api_error"
	OutcomeTransport    = "transport_error"
)

type Metrics struct {
	Requests       *prometheus.CounterVec
	TokenRefreshes *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of backend requests by outcome",
			},
			[]string{"outcome"},
		),
		TokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_token_refresh_total",
				Help: "Token refreshes triggered by a 401 response",
			},
			[]string{"result"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Duration of individual backend round trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

func (m *Metrics) request(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) refresh(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.TokenRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) observe(method string, seconds float64) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(method).Observe(seconds)
}
