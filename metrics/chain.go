package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chain holds the Prometheus collectors the chain manager exposes over
// /metrics. There is exactly one instance per process, created by
// NewChainCollector and wired into the chain.Manager at construction time.
type Chain struct {
	PeakHeight            prometheus.Gauge
	PeakTotalDifficulty   prometheus.Gauge
	ReorgsTotal           prometheus.Counter
	BlockIndexFullEntries prometheus.Gauge
	HotcacheHitRatio      prometheus.Gauge
}

// NewChainCollector builds and registers the chain-level gauges/counters
// named in the manager's metrics surface.
func NewChainCollector() *Chain {
	c := &Chain{
		PeakHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chain_peak_height",
			Help: "Height of the current canonical peak block.",
		}),
		PeakTotalDifficulty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chain_peak_total_difficulty",
			Help: "Cumulative total difficulty of the current canonical peak block.",
		}),
		ReorgsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chain_reorgs_total",
			Help: "Number of times fork choice has switched the canonical peak away from its previous chain.",
		}),
		BlockIndexFullEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chain_block_index_full_entries",
			Help: "Number of full (non-placeholder) entries currently held in the in-memory block index window.",
		}),
		HotcacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chain_hotcache_hit_ratio",
			Help: "Hit ratio of the process-wide LRU block cache.",
		}),
	}
	prometheus.MustRegister(
		c.PeakHeight,
		c.PeakTotalDifficulty,
		c.ReorgsTotal,
		c.BlockIndexFullEntries,
		c.HotcacheHitRatio,
	)
	return c
}
