package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scans         *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
	gaps          *prometheus.CounterVec
	opportunities *prometheus.CounterVec
	edgeScore     prometheus.Histogram
	alertsSent    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder { return NewWithRegistry(prometheus.DefaultRegisterer) }

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		scans: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapscout_scans_total",
				Help: "Total number of completed scan cycles",
			},
			[]string{"session"},
		),
		scanDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gapscout_scan_duration_seconds",
				Help:    "Duration of full scan cycles",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"session"},
		),
		gaps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapscout_gaps_detected_total",
				Help: "Gaps that passed all filters",
			},
			[]string{"symbol", "direction"},
		),
		opportunities: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapscout_opportunities_total",
				Help: "Scored opportunities by pattern",
			},
			[]string{"pattern"},
		),
		edgeScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gapscout_edge_score",
				Help:    "Distribution of total edge scores",
				Buckets: []float64{20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
		alertsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapscout_alerts_sent_total",
				Help: "Alerts delivered per sink",
			},
			[]string{"sink"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gapscout_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gapscout_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gapscout_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordScan records a finished scan cycle.
func (r *Recorder) RecordScan(session string, seconds float64) {
	r.scans.WithLabelValues(session).Inc()
	r.scanDuration.WithLabelValues(session).Observe(seconds)
}

func (r *Recorder) RecordGap(symbol, direction string) {
	r.gaps.WithLabelValues(symbol, direction).Inc()
}

func (r *Recorder) RecordOpportunity(pattern string, edge float64) {
	r.opportunities.WithLabelValues(pattern).Inc()
	r.edgeScore.Observe(edge)
}

func (r *Recorder) RecordAlertSent(sink string) {
	r.alertsSent.WithLabelValues(sink).Inc()
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

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordScan(string, float64)        {}
func (Nop) RecordGap(string, string)          {}
func (Nop) RecordOpportunity(string, float64) {}
func (Nop) RecordAlertSent(string)            {}
func (Nop) RecordError(string)                {}
func (Nop) RecordLastPrice(string, float64)   {}
func (Nop) RecordLatency(string, float64)     {}
