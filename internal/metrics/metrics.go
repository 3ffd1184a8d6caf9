package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hsebcm"

var (
	SyncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Sync runs by outcome (success, degraded, failed, rejected)",
	}, []string{"outcome"})

	SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Wall time of a full sync run",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	SyncedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "synced_events",
		Help:      "Number of events produced by the last successful sync",
	})

	LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful sync",
	})

	SourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_failures_total",
		Help:      "Per-source pipeline failures",
	}, []string{"source"})

	DroppedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_records_total",
		Help:      "Raw records rejected by normalization",
	}, []string{"source"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by tier and result",
	}, []string{"tier", "result"})

	CacheWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_write_errors_total",
		Help:      "Durable cache tier write failures (swallowed)",
	})

	RateLimitWait = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds_total",
		Help:      "Time spent waiting on the rate limiter",
	}, []string{"source"})

	FeedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_clients",
		Help:      "Connected WebSocket feed clients",
	})
)

func init() {
	prometheus.MustRegister(
		SyncRuns, SyncDuration, SyncedEvents, LastSuccess,
		SourceFailures, DroppedRecords,
		CacheLookups, CacheWriteErrors,
		RateLimitWait, FeedClients,
	)
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
