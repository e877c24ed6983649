/*
Package monitoring provides Prometheus metrics for the bundle lifecycle.

# Metrics

  - updater_downloads_total{result}
  - updater_activations_total{result}
  - updater_commits_total, updater_rollbacks_total
  - updater_deletes_total{result}
  - updater_stats_events_total{result}
  - updater_install_duration_seconds{tree}
  - updater_download_bytes_total

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	metrics.RecordDownload(true)

All Record methods are safe on a nil *Metrics.
*/
package monitoring
