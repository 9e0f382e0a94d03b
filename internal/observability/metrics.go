package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"

	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

var (
	registerOnce sync.Once

	packets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifxctl",
			Subsystem: "transport",
			Name:      "packets_total",
			Help:      "Packets sent and received, by message type.",
		},
		[]string{"direction", "type"},
	)
	decodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifxctl",
			Subsystem: "transport",
			Name:      "decode_errors_total",
			Help:      "Datagrams that failed to decode.",
		},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lifxctl",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Request/response round trip in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packets, decodeErrors, requestDuration)
	})
}

// RecordPacket counts one datagram. typeName is the schema name, or
// "unknown" for unregistered types.
func RecordPacket(direction, typeName string) {
	RegisterMetrics()
	if typeName == "" {
		typeName = "unknown"
	}
	packets.WithLabelValues(direction, typeName).Inc()
}

func RecordDecodeError() {
	RegisterMetrics()
	decodeErrors.Inc()
}

func RecordRequest(typeName, outcome string, duration time.Duration) {
	RegisterMetrics()
	requestDuration.WithLabelValues(typeName, outcome).Observe(duration.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
