package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.Metrics over a Prometheus registry.
type PrometheusCollector struct {
	usersOnline  prometheus.Gauge
	callsRinging prometheus.Gauge
	callsActive  prometheus.Gauge

	callsTotal       *prometheus.CounterVec
	callDuration     prometheus.Histogram
	signalsRelayed   *prometheus.CounterVec
	signalsDropped   *prometheus.CounterVec
	connectionsTotal prometheus.Counter
}

// NewPrometheusCollector registers the hub metrics with reg. Pass
// prometheus.DefaultRegisterer in production.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		usersOnline: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wavelink_users_online",
			Help: "Number of users currently registered with the hub",
		}),

		callsRinging: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wavelink_calls_ringing",
			Help: "Number of call sessions currently in the ringing phase",
		}),

		callsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wavelink_calls_active",
			Help: "Number of call sessions currently in the in-call phase",
		}),

		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavelink_calls_total",
			Help: "Total number of terminated call sessions by outcome",
		}, []string{"outcome"}),

		callDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wavelink_call_duration_seconds",
			Help:    "Duration of call sessions from request to terminal transition",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		signalsRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavelink_signals_relayed_total",
			Help: "Total number of negotiation payloads forwarded by event",
		}, []string{"event"}),

		signalsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavelink_signals_dropped_total",
			Help: "Total number of negotiation payloads dropped for unregistered targets",
		}, []string{"event"}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavelink_connections_total",
			Help: "Total number of accepted hub connections",
		}),
	}
}

func (p *PrometheusCollector) UserConnected(online int) {
	p.connectionsTotal.Inc()
	p.usersOnline.Set(float64(online))
}

func (p *PrometheusCollector) UserDisconnected(online int) {
	p.usersOnline.Set(float64(online))
}

func (p *PrometheusCollector) CallRinging() {
	p.callsRinging.Inc()
}

func (p *PrometheusCollector) CallAnswered() {
	p.callsRinging.Dec()
	p.callsActive.Inc()
}

func (p *PrometheusCollector) CallTerminated(outcome string, answered bool, duration time.Duration) {
	if answered {
		p.callsActive.Dec()
	} else {
		p.callsRinging.Dec()
	}
	p.callsTotal.WithLabelValues(outcome).Inc()
	p.callDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) SignalRelayed(event string) {
	p.signalsRelayed.WithLabelValues(event).Inc()
}

func (p *PrometheusCollector) SignalDropped(event string) {
	p.signalsDropped.WithLabelValues(event).Inc()
}
