package imagecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cacheMetrics is registered against its own private registry rather than
// prometheus.DefaultRegisterer: a process may construct more than one Cache
// (notably in tests), and the default registerer panics on a duplicate
// collector name.
type cacheMetrics struct {
	registry      *prometheus.Registry
	cachedEntries prometheus.Gauge
	pendingLoads  prometheus.Gauge
	launched      prometheus.Counter
	evicted       prometheus.Counter
	decodeErrors  prometheus.Counter
}

func newCacheMetrics() *cacheMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &cacheMetrics{
		registry: reg,
		cachedEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqview",
			Subsystem: "imagecache",
			Name:      "cached_entries",
			Help:      "Number of indices currently holding an uploaded texture.",
		}),
		pendingLoads: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqview",
			Subsystem: "imagecache",
			Name:      "pending_loads",
			Help:      "Number of indices currently enqueued for decode.",
		}),
		launched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "seqview",
			Subsystem: "imagecache",
			Name:      "loads_launched_total",
			Help:      "Total load requests enqueued across all window recomputations.",
		}),
		evicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "seqview",
			Subsystem: "imagecache",
			Name:      "entries_evicted_total",
			Help:      "Total cached or pending entries dropped for falling outside the window.",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "seqview",
			Subsystem: "imagecache",
			Name:      "decode_errors_total",
			Help:      "Total loader requests that failed to produce a texture (fetch, read, or decode error).",
		}),
	}
}
