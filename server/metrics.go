package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jrsteele09/go-server-session/sessionapi"
)

const metricsNamespace = "session_api"

// Metrics counts session API calls per operation and response code.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	refused  prometheus.Counter
}

func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Session API requests by operation and HTTP status code.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Session API request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		refused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "logins_refused_total",
			Help:      "Session create requests answered with access refused.",
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.refused} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	m.requests.WithLabelValues(operation, strconv.Itoa(sessionapi.StatusCode(err))).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
