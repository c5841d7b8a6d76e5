package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mqttsub"

// PrometheusMetrics is a prometheus collector for subscriber client events
type PrometheusMetrics struct {
	messages      *prometheus.CounterVec
	reconnects    *prometheus.CounterVec
	pollErrors    prometheus.Counter
	state         *prometheus.GaugeVec
	subscriptions prometheus.Gauge
}

var _ Collector = (*PrometheusMetrics)(nil)

// States lists the label values of the connection_state gauge.
var States = []string{"Disconnected", "Connecting", "Connected", "ShuttingDown"}

// NewPrometheus creates a PrometheusMetrics instance which implements the Collector interface
func NewPrometheus() *PrometheusMetrics {
	return &PrometheusMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "messages received counter",
		}, []string{"qos"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "reconnect attempts counter",
		}, []string{"result"}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "poll errors counter",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "1 for the current connection state, 0 for the others",
		}, []string{"state"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions",
			Help:      "number of active subscriptions",
		}),
	}
}

// AddToRegistry is used to register the collectors with a prometheus.Registerer
func (p *PrometheusMetrics) AddToRegistry(registerer prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{p.messages, p.reconnects, p.pollErrors, p.state, p.subscriptions} {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func (p *PrometheusMetrics) MessageReceived(qos uint8) {
	p.messages.WithLabelValues(strconv.Itoa(int(qos))).Inc()
}

func (p *PrometheusMetrics) ReconnectAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}

	p.reconnects.WithLabelValues(result).Inc()
}

func (p *PrometheusMetrics) PollError() { p.pollErrors.Inc() }

func (p *PrometheusMetrics) ConnectionState(state string) {
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}

		p.state.WithLabelValues(s).Set(v)
	}
}

func (p *PrometheusMetrics) Subscriptions(n int) { p.subscriptions.Set(float64(n)) }
