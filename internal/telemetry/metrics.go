package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the indexer's Prometheus instrumentation, grounded on
// the teacher's use of prometheus/client_golang for per-component
// counters and histograms (cmd/dbmigrate/main.go registers a gatherer
// the same way).
type Metrics struct {
	BlocksProcessed     prometheus.Counter
	RowsInserted        prometheus.Counter
	RpcCallsTotal       prometheus.Counter
	RpcErrorsTotal      prometheus.Counter
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	BlockProcessSeconds prometheus.Histogram
}

// NewMetrics registers the indexer's metrics on reg and returns the
// handle used to update them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "balance_indexer",
			Name:      "blocks_processed_total",
			Help:      "Number of blocks fully processed and committed.",
		}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "balance_indexer",
			Name:      "rows_inserted_total",
			Help:      "Number of balance_changes rows inserted.",
		}),
		RpcCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "balance_indexer",
			Name:      "rpc_calls_total",
			Help:      "Number of view_account RPC calls issued.",
		}),
		RpcErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "balance_indexer",
			Name:      "rpc_errors_total",
			Help:      "Number of view_account RPC calls that returned a non-UnknownAccount error.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "balance_indexer",
			Name:      "cache_hits_total",
			Help:      "Number of BalanceCache lookups served without an RPC call.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "balance_indexer",
			Name:      "cache_misses_total",
			Help:      "Number of BalanceCache lookups that required an RPC call.",
		}),
		BlockProcessSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "balance_indexer",
			Name:      "block_process_seconds",
			Help:      "Wall-clock time to process and commit one block.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.BlocksProcessed,
		m.RowsInserted,
		m.RpcCallsTotal,
		m.RpcErrorsTotal,
		m.CacheHits,
		m.CacheMisses,
		m.BlockProcessSeconds,
	)
	return m
}
