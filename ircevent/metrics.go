package ircevent

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for a Connection. All methods are
// no-ops on a nil *Metrics.
type Metrics struct {
	LinesReceived      *prometheus.CounterVec
	LinesSent          *prometheus.CounterVec
	ProtocolErrors     *prometheus.CounterVec
	ProtocolViolations *prometheus.CounterVec
	SendQueueDelay     prometheus.Histogram
	Connected          prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LinesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irc_lines_received_total",
				Help: "Lines received from the server by command",
			},
			[]string{"command"},
		),
		LinesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irc_lines_sent_total",
				Help: "Lines written to the server by command",
			},
			[]string{"command"},
		),
		ProtocolErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irc_protocol_errors_total",
				Help: "Numeric error replies from the server by code",
			},
			[]string{"code"},
		),
		ProtocolViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irc_protocol_violations_total",
				Help: "Server messages that could not be processed, by command",
			},
			[]string{"command"},
		),
		SendQueueDelay: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "irc_send_queue_delay_seconds",
				Help:    "Time lines spent in the send queue",
				Buckets: prometheus.DefBuckets,
			},
		),
		Connected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "irc_connected",
				Help: "1 while the transport is connected",
			},
		),
	}
}

// otherCommandLabel stands in for every command without a handler, so
// servers cannot grow the label set.
const otherCommandLabel = "other"

func commandLabel(command string) string {
	table, err := getCommandTable()
	if err != nil || table.lookup(command) == nil {
		return otherCommandLabel
	}
	return strings.ToUpper(command)
}

func (m *Metrics) lineReceived(command string) {
	if m != nil {
		m.LinesReceived.WithLabelValues(commandLabel(command)).Inc()
	}
}

func (m *Metrics) lineSent(command string, queued time.Duration) {
	if m != nil {
		m.LinesSent.WithLabelValues(command).Inc()
		m.SendQueueDelay.Observe(queued.Seconds())
	}
}

func (m *Metrics) protocolError(code string) {
	if m != nil {
		m.ProtocolErrors.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) protocolViolation(command string) {
	if m != nil {
		m.ProtocolViolations.WithLabelValues(command).Inc()
	}
}

func (m *Metrics) setConnected(connected bool) {
	if m != nil {
		if connected {
			m.Connected.Set(1)
		} else {
			m.Connected.Set(0)
		}
	}
}
