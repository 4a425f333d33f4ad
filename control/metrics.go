// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for the exchange core. A nil *Metrics is valid and
// records nothing.

package control

import (
	"errors"
	"net/http"
	"time"

	"github.com/momentics/hioload-ipc/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Roles used as label values.
const (
	RoleClient = "client"
	RoleServer = "server"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	registry  *prometheus.Registry
	exchanges *prometheus.CounterVec
	bytes     *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	ioSeconds *prometheus.HistogramVec
}

// NewMetrics creates collectors registered on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_exchanges_total",
				Help: "Completed exchanges by role and outcome",
			},
			[]string{"role", "outcome"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_bytes_total",
				Help: "Payload bytes moved by role and direction",
			},
			[]string{"role", "direction"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_dropped_events_total",
				Help: "Socket events dropped for lack of a registered handler",
			},
			[]string{"kind"},
		),
		ioSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ipc_stream_io_seconds",
				Help:    "Duration of read-to-exhaustion and write-until-exhausted runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"role", "op"},
		),
	}
	m.registry.MustRegister(m.exchanges, m.bytes, m.dropped, m.ioSeconds)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Exchange records the outcome of one exchange. The outcome label is the
// error code name, or "ok".
func (m *Metrics) Exchange(role string, err error) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(role, Outcome(err)).Inc()
}

// Read records n payload bytes received.
func (m *Metrics) Read(role string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(role, "in").Add(float64(n))
}

// Written records n payload bytes sent.
func (m *Metrics) Written(role string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(role, "out").Add(float64(n))
}

// StreamIO records the duration of one stream loop.
func (m *Metrics) StreamIO(role, op string, d time.Duration) {
	if m == nil {
		return
	}
	m.ioSeconds.WithLabelValues(role, op).Observe(d.Seconds())
}

// Dropped records an event dropped by the dispatcher.
func (m *Metrics) Dropped(ev api.Event) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(ev.Kind.String()).Inc()
}

// Outcome names err for the outcome label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var e *api.Error
	if errors.As(err, &e) {
		return e.Code.String()
	}
	return "error"
}
