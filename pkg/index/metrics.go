package index

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	filtersBuilt    prometheus.Counter
	filterBytes     prometheus.Counter
	buildDuration   prometheus.Histogram
	pruneDecisions  *prometheus.CounterVec
	decodeFailures  prometheus.Counter
	cacheRequests   *prometheus.CounterVec
	objectsUploaded prometheus.Counter
	objectsNotFound prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		filtersBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockfilter_filters_built_total",
			Help: "Total number of column filters built",
		}),
		filterBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockfilter_filter_bytes_total",
			Help: "Total number of encoded filter bytes built",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blockfilter_build_duration_seconds",
			Help:    "Time taken to build the filters of a file",
			Buckets: prometheus.DefBuckets,
		}),
		pruneDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockfilter_prune_decisions_total",
			Help: "Total number of pruning decisions by result",
		}, []string{"result"}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockfilter_decode_failures_total",
			Help: "Total number of filters that could not be loaded or decoded",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockfilter_cache_requests_total",
			Help: "Total number of filter cache lookups by result",
		}, []string{"result"}),
		objectsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockfilter_objects_uploaded_total",
			Help: "Total number of filter objects uploaded",
		}),
		objectsNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockfilter_objects_not_found_total",
			Help: "Total number of files read without a stored filter",
		}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.filtersBuilt,
		m.filterBytes,
		m.buildDuration,
		m.pruneDecisions,
		m.decodeFailures,
		m.cacheRequests,
		m.objectsUploaded,
		m.objectsNotFound,
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, collector := range m.collectors() {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func (m *metrics) unregister(reg prometheus.Registerer) {
	for _, collector := range m.collectors() {
		reg.Unregister(collector)
	}
}

func (m *metrics) observePrune(result FilterEvalResult) {
	m.pruneDecisions.WithLabelValues(result.String()).Inc()
}

func (m *metrics) observeCache(hit bool) {
	if hit {
		m.cacheRequests.WithLabelValues("hit").Inc()
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}
