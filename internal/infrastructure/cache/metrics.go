package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cache activity per region.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	Loads         *prometheus.CounterVec
	LoadErrors    *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
}

// NewMetrics registers the cache collectors on registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      name,
				Help:      help,
			},
			[]string{"region"},
		)
	}

	return &Metrics{
		Hits:          counter("hits_total", "Lookups answered from the cache"),
		Misses:        counter("misses_total", "Lookups not found in the cache"),
		Loads:         counter("loads_total", "Loader executions after a miss"),
		LoadErrors:    counter("load_errors_total", "Loader executions that failed"),
		Invalidations: counter("invalidations_total", "Region invalidations"),
	}
}
