package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the per-server Prometheus instrumentation. Each Server owns its
// own registry so tests can run several servers in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bytesSent       *prometheus.CounterVec
	activeConns     prometheus.Gauge
	acceptedConns   prometheus.Counter
	acceptErrors    prometheus.Counter
	errorFrames     *prometheus.CounterVec
	errorAttempts   prometheus.Counter
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nftp_requests_total",
				Help: "Requests handled, by instruction and outcome",
			},
			[]string{"op", "outcome"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nftp_request_duration_seconds",
				Help:    "Time from first read to the end of the response",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		bytesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nftp_payload_bytes_sent_total",
				Help: "Payload bytes written after a success header",
			},
			[]string{"op"},
		),
		activeConns: f.NewGauge(prometheus.GaugeOpts{
			Name: "nftp_active_connections",
			Help: "Connections currently being served",
		}),
		acceptedConns: f.NewCounter(prometheus.CounterOpts{
			Name: "nftp_connections_accepted_total",
			Help: "Connections accepted by the listener",
		}),
		acceptErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "nftp_accept_errors_total",
			Help: "Failed Accept calls",
		}),
		errorFrames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nftp_error_frames_total",
				Help: "Error frames by final delivery result",
			},
			[]string{"result"}, // "delivered", "abandoned"
		),
		errorAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "nftp_error_frame_attempts_total",
			Help: "Individual error frame send attempts, including retries",
		}),
	}
}

// Registry exposes the registry for the admin /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recordRequest(op, outcome string, d time.Duration) {
	m.requests.WithLabelValues(op, outcome).Inc()
	m.requestDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) recordBytes(op string, n int64) {
	if n > 0 {
		m.bytesSent.WithLabelValues(op).Add(float64(n))
	}
}

func (m *Metrics) connOpened() {
	m.acceptedConns.Inc()
	m.activeConns.Inc()
}

func (m *Metrics) connClosed() { m.activeConns.Dec() }

func (m *Metrics) acceptFailed() { m.acceptErrors.Inc() }

func (m *Metrics) errorAttempt() { m.errorAttempts.Inc() }

func (m *Metrics) errorFrame(delivered bool) {
	if delivered {
		m.errorFrames.WithLabelValues("delivered").Inc()
		return
	}
	m.errorFrames.WithLabelValues("abandoned").Inc()
}
