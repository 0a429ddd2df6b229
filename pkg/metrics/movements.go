package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MovementMetrics records observability signals for the ledger write path.
// These are signals only; correctness never depends on them.
type MovementMetrics struct {
	saveDuration  *prometheus.HistogramVec
	largeBatches  *prometheus.CounterVec
	saveRetries   *prometheus.CounterVec
	seqExhaustion *prometheus.CounterVec
}

// NewMovementMetrics registers the ledger metrics on the provided registerer.
func NewMovementMetrics(reg prometheus.Registerer) *MovementMetrics {
	if reg == nil {
		return &MovementMetrics{}
	}
	saveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "movement_save_duration_seconds",
		Help:    "Duration of movement batch persistence in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"transaction_type"})
	largeBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movement_large_batches_total",
		Help: "Movement batches exceeding the large-batch threshold.",
	}, []string{"transaction_type"})
	saveRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movement_save_retries_total",
		Help: "Transient-failure retries on movement persistence.",
	}, []string{"transaction_type"})
	seqExhaustion := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sequence_capacity_exhausted_total",
		Help: "Identifier sequence keys that hit their capacity ceiling.",
	}, []string{"sequence"})
	reg.MustRegister(saveDuration, largeBatches, saveRetries, seqExhaustion)
	return &MovementMetrics{
		saveDuration:  saveDuration,
		largeBatches:  largeBatches,
		saveRetries:   saveRetries,
		seqExhaustion: seqExhaustion,
	}
}

// ObserveSaveDuration records how long one movement batch took to persist.
func (m *MovementMetrics) ObserveSaveDuration(txType string, duration time.Duration) {
	if m == nil || m.saveDuration == nil {
		return
	}
	m.saveDuration.WithLabelValues(normalizeLabel(txType)).Observe(duration.Seconds())
}

// IncLargeBatch counts a batch that crossed the large-batch threshold.
func (m *MovementMetrics) IncLargeBatch(txType string) {
	if m == nil || m.largeBatches == nil {
		return
	}
	m.largeBatches.WithLabelValues(normalizeLabel(txType)).Inc()
}

// IncSaveRetry counts one transient-failure retry attempt.
func (m *MovementMetrics) IncSaveRetry(txType string) {
	if m == nil || m.saveRetries == nil {
		return
	}
	m.saveRetries.WithLabelValues(normalizeLabel(txType)).Inc()
}

// IncSequenceExhaustion counts a sequence key hitting its ceiling.
func (m *MovementMetrics) IncSequenceExhaustion(sequence string) {
	if m == nil || m.seqExhaustion == nil {
		return
	}
	m.seqExhaustion.WithLabelValues(normalizeLabel(sequence)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
