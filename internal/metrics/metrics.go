// Package metrics provides counters, Prometheus collectors, and HTTP
// handlers for the simulator fixture lifecycle.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	acquires          int64
	acquiresFailed    int64
	releases          int64
	reaped            int64
	reapFailed        int64
	imagePullsSuccess int64
	imagePullsFailure int64
	lastAcquire       int64
)

const counterInc int64 = 1

var (
	promAcquires = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plcharness_acquires_total",
			Help: "Total successful simulator acquisitions",
		},
	)
	promAcquiresFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plcharness_acquires_failed_total",
			Help: "Total failed simulator acquisitions",
		},
	)
	promReleases = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plcharness_releases_total",
			Help: "Total fixture releases that ran a reap pass",
		},
	)
	promReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plcharness_reaped_containers_total",
			Help: "Total containers stopped and removed by reap passes",
		},
	)
	promReapFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plcharness_reap_failures_total",
			Help: "Total failed list, stop or remove calls during reap passes",
		},
	)
	promImagePulls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plcharness_image_pulls_total",
			Help: "Total image pull attempts",
		},
		[]string{"status"},
	)
	promAcquireDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plcharness_acquire_duration_seconds",
			Help:    "Duration of successful simulator acquisitions",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)
	promLastAcquire = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plcharness_last_acquire_timestamp_seconds",
			Help: "Unix timestamp of the last successful acquisition",
		},
	)
)

func init() {
	prometheus.MustRegister(
		promAcquires,
		promAcquiresFailed,
		promReleases,
		promReaped,
		promReapFailed,
		promImagePulls,
		promAcquireDuration,
		promLastAcquire,
	)
}

// IncAcquire records a successful acquisition and its timestamp.
func IncAcquire() {
	atomic.AddInt64(&acquires, counterInc)
	promAcquires.Inc()
	now := time.Now().Unix()
	atomic.StoreInt64(&lastAcquire, now)
	promLastAcquire.Set(float64(now))
}

// IncAcquireFailed increments the counter for failed acquisitions.
func IncAcquireFailed() {
	atomic.AddInt64(&acquiresFailed, counterInc)
	promAcquiresFailed.Inc()
}

// IncRelease increments the counter for releases that reached the engine.
func IncRelease() {
	atomic.AddInt64(&releases, counterInc)
	promReleases.Inc()
}

// IncReaped increments the counter of removed containers.
func IncReaped() {
	atomic.AddInt64(&reaped, counterInc)
	promReaped.Inc()
}

// IncReapFailed increments the counter of failed reap operations.
func IncReapFailed() {
	atomic.AddInt64(&reapFailed, counterInc)
	promReapFailed.Inc()
}

// IncImagePullSuccess increments the counter for successful image pulls.
func IncImagePullSuccess() {
	atomic.AddInt64(&imagePullsSuccess, counterInc)
	promImagePulls.WithLabelValues("success").Inc()
}

// IncImagePullFailure increments the counter for failed image pulls.
func IncImagePullFailure() {
	atomic.AddInt64(&imagePullsFailure, counterInc)
	promImagePulls.WithLabelValues("failure").Inc()
}

// ObserveAcquireDuration records the duration (in seconds) of an acquisition.
func ObserveAcquireDuration(seconds float64) {
	promAcquireDuration.Observe(seconds)
}

// StatsSnapshot is a snapshot of metrics for JSON encoding.
type StatsSnapshot struct {
	Acquires          int64  `json:"acquires"`
	AcquiresFailed    int64  `json:"acquires_failed"`
	Releases          int64  `json:"releases"`
	Reaped            int64  `json:"reaped"`
	ReapFailed        int64  `json:"reap_failed"`
	ImagePullsSuccess int64  `json:"image_pulls_success"`
	ImagePullsFailure int64  `json:"image_pulls_failure"`
	LastAcquire       int64  `json:"last_acquire_timestamp"`
	LastAcquireHuman  string `json:"last_acquire_human"`
}

// GetSnapshot returns the current values of all counters.
func GetSnapshot() StatsSnapshot {
	ts := atomic.LoadInt64(&lastAcquire)
	human := ""
	if ts > 0 {
		human = time.Unix(ts, 0).Format(time.RFC3339)
	}
	return StatsSnapshot{
		Acquires:          atomic.LoadInt64(&acquires),
		AcquiresFailed:    atomic.LoadInt64(&acquiresFailed),
		Releases:          atomic.LoadInt64(&releases),
		Reaped:            atomic.LoadInt64(&reaped),
		ReapFailed:        atomic.LoadInt64(&reapFailed),
		ImagePullsSuccess: atomic.LoadInt64(&imagePullsSuccess),
		ImagePullsFailure: atomic.LoadInt64(&imagePullsFailure),
		LastAcquire:       ts,
		LastAcquireHuman:  human,
	}
}

// PromHandler returns an HTTP handler that exposes Prometheus metrics.
func PromHandler() http.Handler { return promhttp.Handler() }

// JSONHandler returns an HTTP handler that serves the current metrics as
// a JSON-encoded StatsSnapshot.
func JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GetSnapshot())
	})
}

// Mux returns a mux serving /metrics and /status.
func Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", PromHandler())
	mux.Handle("/status", JSONHandler())
	return mux
}
