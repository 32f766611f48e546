// Package metrics holds the Prometheus collectors exported by the refresh service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	FetchCacheHits prometheus.Counter
	FetchRequests  prometheus.Counter
	FetchFailures  prometheus.Counter
	StatusChecks   *prometheus.CounterVec
	Operations     *prometheus.CounterVec
	LastCheckUnix  prometheus.Gauge
}

// New builds the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FetchCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hostsbypass",
			Subsystem: "fetch",
			Name:      "cache_hits_total",
			Help:      "Remote fetches served from the in-memory cache.",
		}),
		FetchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hostsbypass",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Remote fetches that reached the network.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hostsbypass",
			Subsystem: "fetch",
			Name:      "failures_total",
			Help:      "Remote fetches that failed and collapsed to empty content.",
		}),
		StatusChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostsbypass",
			Name:      "status_checks_total",
			Help:      "Hosts status checks by resulting status.",
		}, []string{"status"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostsbypass",
			Name:      "operations_total",
			Help:      "Install and uninstall runs by result.",
		}, []string{"action", "result"}),
		LastCheckUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hostsbypass",
			Name:      "last_status_check_timestamp_seconds",
			Help:      "Unix time of the last completed status check.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FetchCacheHits,
		m.FetchRequests,
		m.FetchFailures,
		m.StatusChecks,
		m.Operations,
		m.LastCheckUnix,
	)
	return m
}
