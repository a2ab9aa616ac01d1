package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks operation outcomes and system health of the CDP
// engine.
type EngineMetrics struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	liquidations *prometheus.CounterVec
	redemptions  prometheus.Counter
	transfers    *prometheus.CounterVec
	recovery     prometheus.Gauge
	tcr          prometheus.Gauge
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "solusd",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by operation and outcome category.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "solusd",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for engine operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "solusd",
				Subsystem: "engine",
				Name:      "liquidations_total",
				Help:      "Troves liquidated segmented by system mode.",
			}, []string{"mode"}),
			redemptions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "solusd",
				Subsystem: "engine",
				Name:      "redemptions_total",
				Help:      "Count of successful redemptions.",
			}),
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "solusd",
				Subsystem: "engine",
				Name:      "transfers_total",
				Help:      "Transfer requests emitted segmented by asset and kind.",
			}, []string{"asset", "kind"}),
			recovery: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "solusd",
				Subsystem: "engine",
				Name:      "recovery_mode",
				Help:      "1 when the system was in recovery mode at the last priced operation.",
			}),
			tcr: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "solusd",
				Subsystem: "engine",
				Name:      "tcr",
				Help:      "Total collateral ratio observed at the last priced operation.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.latency,
			engineRegistry.liquidations,
			engineRegistry.redemptions,
			engineRegistry.transfers,
			engineRegistry.recovery,
			engineRegistry.tcr,
		)
	})
	return engineRegistry
}

// ObserveOperation records the outcome and latency of one operation. An
// empty outcome is recorded as "ok".
func (m *EngineMetrics) ObserveOperation(op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordLiquidations adds count liquidated troves under mode.
func (m *EngineMetrics) RecordLiquidations(mode string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.liquidations.WithLabelValues(mode).Add(float64(count))
}

func (m *EngineMetrics) RecordRedemption() {
	if m == nil {
		return
	}
	m.redemptions.Inc()
}

func (m *EngineMetrics) RecordTransfer(asset, kind string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(asset, kind).Inc()
}

// SetSystemHealth publishes the latest TCR as a float ratio.
func (m *EngineMetrics) SetSystemHealth(tcr float64, recovery bool) {
	if m == nil {
		return
	}
	m.tcr.Set(tcr)
	if recovery {
		m.recovery.Set(1)
	} else {
		m.recovery.Set(0)
	}
}
