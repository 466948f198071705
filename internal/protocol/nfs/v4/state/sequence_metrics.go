package state

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// SequenceMetrics tracks SEQUENCE processing.
// All methods are nil-safe: calls on a nil *SequenceMetrics are no-ops.
type SequenceMetrics struct {
	// SequenceTotal counts SEQUENCE operations by outcome label:
	// "proceed", "replay" or the lower-case status name of the failure.
	SequenceTotal *prometheus.CounterVec

	// ReplayHitsTotal counts cached replies sent back on retransmission.
	ReplayHitsTotal prometheus.Counter

	// Duration observes SEQUENCE latency in seconds.
	Duration prometheus.Histogram
}

// NewSequenceMetrics creates SEQUENCE metrics and registers them with reg.
func NewSequenceMetrics(reg prometheus.Registerer) *SequenceMetrics {
	return &SequenceMetrics{
		SequenceTotal: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sequence",
			Name:      "total",
			Help:      "Total number of SEQUENCE operations by outcome",
		}, []string{"outcome"})),
		ReplayHitsTotal: registerOrReuse(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sequence",
			Name:      "replay_hits_total",
			Help:      "Total number of cached replies returned for retransmissions",
		})),
		Duration: registerOrReuse(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "sequence",
			Name:      "duration_seconds",
			Help:      "SEQUENCE processing latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		})),
	}
}

// RecordOutcome counts a SEQUENCE result. A non-OK status is labelled by
// its status name whatever the outcome.
func (m *SequenceMetrics) RecordOutcome(outcome SlotOutcome, status uint32, seconds float64) {
	if m == nil {
		return
	}
	label := outcome.String()
	if status != types.NFS4_OK {
		label = types.StatusName(status)
	} else if outcome == SlotReplay {
		m.ReplayHitsTotal.Inc()
	}
	m.SequenceTotal.WithLabelValues(label).Inc()
	m.Duration.Observe(seconds)
}
