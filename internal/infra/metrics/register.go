package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Every series this service exports is prefixed so it can share a scrape
// target with sidecars without clashing.
const prefix = "marketplace_"

var (
	registry = prometheus.NewRegistry()
	pending  []prometheus.Collector
	once     sync.Once
)

// register queues collectors from each metrics file's init.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs the queued collectors plus the Go runtime and
// process collectors. Safe to call more than once.
func MustRegister() {
	once.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		prometheus.WrapRegistererWithPrefix(prefix, registry).MustRegister(pending...)
	})
}

// Handler serves the service registry only, not the global default one.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
