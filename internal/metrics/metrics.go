// Package metrics declares the prometheus collectors exported by sproc.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label values shared by sproc metrics.
const (
	Fail = "fail"
	Ok   = "ok"
	Hit  = "hit"
	Miss = "miss"

	// Skipped marks a store that did not publish: a Frozen key already held
	// a value, or a distributed write was downgraded.
	Skipped = "skipped"
)

// Collectors for cache and procedure execution metrics.
var (
	CacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sproc_cache_requests_total",
		Help: "Cumulative number of cache lookups, by tier and result.",
	}, []string{"tier", "result"})
	CacheStoresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sproc_cache_stores_total",
		Help: "Cumulative number of cache stores, by tier and result.",
	}, []string{"tier", "result"})
	ProcedureDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sproc_procedure_duration_seconds",
		Help:    "Duration of procedure executions including materialization.",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure", "result"})
)

// Collectors returns every sproc collector, for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		CacheRequestsTotal,
		CacheStoresTotal,
		ProcedureDurationSeconds,
	}
}

// Register registers every sproc collector with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
