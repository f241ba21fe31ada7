package binlog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the work of a Decoder. A nil *Metrics counts nothing.
type Metrics struct {
	events *prometheus.CounterVec
	rows   *prometheus.CounterVec
	errors *prometheus.CounterVec
}

// NewMetrics creates the binlog collectors and registers them with reg
// unless reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "binlog",
			Name:      "events_decoded_total",
			Help:      "Number of decoded binlog events by event type.",
		}, []string{"type"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "binlog",
			Name:      "rows_decoded_total",
			Help:      "Number of decoded row images by rows event type.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "binlog",
			Name:      "decode_errors_total",
			Help:      "Number of events that failed to decode by error kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.rows, m.errors)
	}
	return m
}

func (m *Metrics) observe(e Event) {
	if m == nil {
		return
	}
	typ := e.Header.EventType.String()
	m.events.WithLabelValues(typ).Inc()
	if re, ok := e.Data.(*RowsEvent); ok {
		m.rows.WithLabelValues(typ).Add(float64(len(re.Rows)))
	}
}

func (m *Metrics) observeError(err error) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errorKind(err)).Inc()
}
