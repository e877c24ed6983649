package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDropped = "dropped"
)

// Metrics holds the bundle lifecycle collectors
type Metrics struct {
	Downloads       *prometheus.CounterVec
	Activations     *prometheus.CounterVec
	Commits         prometheus.Counter
	Rollbacks       prometheus.Counter
	Deletes         *prometheus.CounterVec
	StatsEvents     *prometheus.CounterVec
	InstallDuration *prometheus.HistogramVec
	DownloadBytes   prometheus.Counter
}

// NewMetrics registers the collectors on reg. A nil reg gets a private
// registry, which keeps repeated construction in tests from panicking.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Downloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updater_downloads_total",
				Help: "Bundle downloads by result",
			},
			[]string{"result"},
		),
		Activations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updater_activations_total",
				Help: "Attempts to point the current bundle at an installed bundle",
			},
			[]string{"result"},
		),
		Commits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "updater_commits_total",
				Help: "Bundles confirmed as good",
			},
		),
		Rollbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "updater_rollbacks_total",
				Help: "Bundles marked as failed",
			},
		),
		Deletes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updater_deletes_total",
				Help: "Bundle deletions by result",
			},
			[]string{"result"},
		),
		StatsEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updater_stats_events_total",
				Help: "Stats events by result",
			},
			[]string{"result"},
		),
		InstallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "updater_install_duration_seconds",
				Help:    "Time to extract and place a bundle into one tree",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tree"},
		),
		DownloadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "updater_download_bytes_total",
				Help: "Bytes received for bundle archives",
			},
		),
	}
}

// RecordDownload counts a finished download
func (m *Metrics) RecordDownload(ok bool) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(result(ok)).Inc()
}

// RecordActivation counts a set attempt
func (m *Metrics) RecordActivation(ok bool) {
	if m == nil {
		return
	}
	m.Activations.WithLabelValues(result(ok)).Inc()
}

// RecordCommit counts a commit
func (m *Metrics) RecordCommit() {
	if m == nil {
		return
	}
	m.Commits.Inc()
}

// RecordRollback counts a rollback
func (m *Metrics) RecordRollback() {
	if m == nil {
		return
	}
	m.Rollbacks.Inc()
}

// RecordDelete counts a delete attempt
func (m *Metrics) RecordDelete(ok bool) {
	if m == nil {
		return
	}
	m.Deletes.WithLabelValues(result(ok)).Inc()
}

// RecordStats counts a stats event outcome
func (m *Metrics) RecordStats(outcome string) {
	if m == nil {
		return
	}
	m.StatsEvents.WithLabelValues(outcome).Inc()
}

// ObserveInstall records the time spent installing into one tree
func (m *Metrics) ObserveInstall(tree string, d time.Duration) {
	if m == nil {
		return
	}
	m.InstallDuration.WithLabelValues(tree).Observe(d.Seconds())
}

// AddDownloadBytes adds received archive bytes
func (m *Metrics) AddDownloadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.DownloadBytes.Add(float64(n))
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}
