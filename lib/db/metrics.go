package db

import (
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// Process wide metrics, exposed by the HTTP transport under /metrics.
var (
	hydratedTotal    = metrics.NewCounter("propdb_databases_hydrated_total")
	flushesTotal     = metrics.NewCounter("propdb_database_flushes_total")
	flushErrorsTotal = metrics.NewCounter("propdb_database_flush_errors_total")
	evictedTotal     = metrics.NewCounter("propdb_databases_evicted_total")
	sweepsTotal      = metrics.NewCounter("propdb_cleaner_sweeps_total")

	liveDatabases atomic.Int64
	_             = metrics.NewGauge("propdb_databases_live", func() float64 {
		return float64(liveDatabases.Load())
	})
)
