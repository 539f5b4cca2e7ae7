package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheLookups) }

// cacheLookups covers the read-through caches in front of users and plans.
var cacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Read-through cache lookups by entity and result (hit, miss, error).",
	},
	[]string{"entity", "result"},
)

func IncCacheRequest(entity, result string) {
	cacheLookups.WithLabelValues(norm(entity), norm(result)).Inc()
}
