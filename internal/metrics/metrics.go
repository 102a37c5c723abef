// Package metrics declares the Prometheus collectors this daemon exposes on
// /metrics, grouped by the pipeline stage that updates them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineup_refresh_runs_total",
		Help: "Refresh Coordinator runs by type and outcome",
	}, []string{"type", "outcome"}) // type=full|build_only, outcome=ok|fail

	refreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lineup_refresh_duration_seconds",
		Help:    "Wall-clock duration of a refresh run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2.0, 12), // 0.5s .. ~17min
	})

	refreshTriggersRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lineup_refresh_triggers_rejected_total",
		Help: "Operator-triggered refreshes rejected because one was already running",
	})

	snapshotChannelsPublished = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lineup_snapshot_channels_published",
		Help: "Channel count in the active snapshot, per profile output name",
	}, []string{"profile"})

	snapshotsRetained = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lineup_snapshots_retained",
		Help: "Snapshot rows currently kept (active + archived) per profile",
	}, []string{"profile"})

	fetchBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineup_fetch_bytes_total",
		Help: "Bytes read from upstream playlist/guide fetches",
	}, []string{"provider", "kind"}) // kind=playlist|guide

	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineup_fetch_failures_total",
		Help: "Upstream fetch failures by kind",
	}, []string{"provider", "kind"}) // kind=fetch_failed|parse_failed

	relayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineup_relay_requests_total",
		Help: "Stream relay requests by outcome",
	}, []string{"outcome"}) // outcome=ok|not_found|no_snapshot|upstream_unreachable

	relayBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lineup_relay_bytes_total",
		Help: "Bytes copied from upstream to clients through the stream relay",
	})

	relayActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lineup_relay_active_streams",
		Help: "Currently open relay connections",
	})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lineup_http_request_duration_seconds",
		Help:    "Client-endpoint HTTP request latencies",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveRefresh records the outcome and duration of one Refresh Coordinator
// run.
func ObserveRefresh(runType string, succeeded bool, duration time.Duration) {
	outcome := "ok"
	if !succeeded {
		outcome = "fail"
	}
	refreshRunsTotal.WithLabelValues(runType, outcome).Inc()
	refreshDurationSeconds.Observe(duration.Seconds())
}

// IncRefreshTriggerRejected records an operator trigger that hit ErrBusy.
func IncRefreshTriggerRejected() { refreshTriggersRejectedTotal.Inc() }

// RecordSnapshotPublished records the channel count of a newly promoted
// snapshot and the number of generations currently retained for profile.
func RecordSnapshotPublished(profileOutputName string, channelCount, retained int) {
	snapshotChannelsPublished.WithLabelValues(profileOutputName).Set(float64(channelCount))
	snapshotsRetained.WithLabelValues(profileOutputName).Set(float64(retained))
}

// RecordFetchBytes records bytes read for one fetch of kind ("playlist" or
// "guide") against providerName.
func RecordFetchBytes(providerName, kind string, n int64) {
	fetchBytesTotal.WithLabelValues(providerName, kind).Add(float64(n))
}

// IncFetchFailure records a fetch-stage failure, keyed by its fetch.ErrorKind.
func IncFetchFailure(providerName, kind string) {
	fetchFailuresTotal.WithLabelValues(providerName, kind).Inc()
}

// IncRelayRequest records one relay request's terminal outcome.
func IncRelayRequest(outcome string) { relayRequestsTotal.WithLabelValues(outcome).Inc() }

// AddRelayBytes records n bytes copied from an upstream to a client.
func AddRelayBytes(n int64) { relayBytesTotal.Add(float64(n)) }

// RelayStreamOpened and RelayStreamClosed track concurrently open relay
// connections; callers pair every Opened with exactly one Closed, typically
// via defer.
func RelayStreamOpened() { relayActiveStreams.Inc() }
func RelayStreamClosed() { relayActiveStreams.Dec() }

// ObserveHTTPRequest records one client-endpoint request's route, status,
// and latency. route should be the chi route pattern, not the raw path, to
// avoid per-streamKey cardinality explosion.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
