package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "planilhador"

// Metrics are the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	messages   *prometheus.CounterVec
	recorded   prometheus.Counter
	duplicates prometheus.Counter
	skipped    *prometheus.CounterVec
	sinkErrors prometheus.Counter
	ocr        prometheus.Histogram
	inFlight   prometheus.Gauge
}

// Message outcomes.
const (
	outcomeEmpty    = "empty"
	outcomeNoBets   = "no_bets"
	outcomeRecorded = "recorded"
)

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages processed, by outcome.",
		}, []string{"outcome"}),
		recorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_recorded_total",
			Help:      "Bets appended to the ground truth sheet.",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_duplicate_total",
			Help:      "Bets whose fingerprint had already been seen.",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markets_skipped_total",
			Help:      "Markets dropped before recording, by reason.",
		}, []string{"reason"}),
		sinkErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Rows that could not be appended to the sheet.",
		}),
		ocr: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ocr_duration_seconds",
			Help:      "Time spent downloading and recognising one image.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "messages_in_flight",
			Help:      "Messages currently being processed.",
		}),
	}
}

func (m *Metrics) message(outcome string) {
	if m != nil {
		m.messages.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) recordedBet() {
	if m != nil {
		m.recorded.Inc()
	}
}

func (m *Metrics) duplicate() {
	if m != nil {
		m.duplicates.Inc()
	}
}

func (m *Metrics) skippedMarket(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) sinkError() {
	if m != nil {
		m.sinkErrors.Inc()
	}
}

func (m *Metrics) observeOCR(d time.Duration) {
	if m != nil {
		m.ocr.Observe(d.Seconds())
	}
}

func (m *Metrics) started() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) finished() {
	if m != nil {
		m.inFlight.Dec()
	}
}
