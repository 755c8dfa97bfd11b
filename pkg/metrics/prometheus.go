package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockpulse"

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	decoded      *prometheus.CounterVec
	cache        *prometheus.CounterVec
	upstream     *prometheus.HistogramVec
}

// New registers the collectors on reg; pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_sent_total",
				Help:      "Quote snapshots forwarded to a sink",
			},
			[]string{"sink", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_price",
				Help:      "Last polled price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		decoded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decoded_records_total",
				Help:      "Records produced by the wire decoder",
			},
			[]string{"kind"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		upstream: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "request_duration_seconds",
				Help:      "Latency of quote provider requests",
				Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "outcome"},
		),
	}
}

// RecordMessageSent records a snapshot sent to a sink.
func (r *Recorder) RecordMessageSent(sink, symbol string) {
	r.messagesSent.WithLabelValues(sink, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordDecoded(kind string, n int) {
	r.decoded.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) RecordCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) RecordUpstream(endpoint string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.upstream.WithLabelValues(endpoint, outcome).Observe(seconds)
}

// Nop satisfies repository.Metrics and records nothing.
type Nop struct{}

func (Nop) RecordMessageSent(string, string)        {}
func (Nop) RecordError(string)                      {}
func (Nop) RecordLastPrice(string, float64)         {}
func (Nop) RecordLatency(string, float64)           {}
func (Nop) RecordDecoded(string, int)               {}
func (Nop) RecordCache(string, bool)                {}
func (Nop) RecordUpstream(string, float64, error)   {}
