// Package metrics counts lookups, downloads and clips for one run and writes them in
// the Prometheus text format, suitable for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK     = "ok"
	ResultFailed = "failed"

	DownloadHit        = "hit"
	DownloadDownloaded = "downloaded"
	DownloadFailed     = "failed"
)

// Metrics owns a private registry so tests and repeated runs never collide.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	Lookups        *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	Downloads      *prometheus.CounterVec
	DownloadBytes  prometheus.Counter
	Clips          *prometheus.CounterVec
	LastRun        *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "osmx_lookups_total",
			Help: "Remote metadata lookups by kind and result",
		}, []string{"kind", "result"}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "osmx_lookup_duration_ms",
			Help:    "Remote metadata lookup duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"kind"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "osmx_extract_downloads_total",
			Help: "National extract cache checks by result (hit, downloaded, failed)",
		}, []string{"result"}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmx_extract_download_bytes_total",
			Help: "Bytes written while downloading national extracts",
		}),
		Clips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "osmx_clips_total",
			Help: "Province clips by outcome (clipped, failed, skipped)",
		}, []string{"outcome"}),
		LastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "osmx_last_run_timestamp_seconds",
			Help: "Unix time at which a stage last finished",
		}, []string{"stage"}),
	}
	m.registry.MustRegister(m.Lookups, m.LookupDuration, m.Downloads, m.DownloadBytes, m.Clips, m.LastRun)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveLookup(kind string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	m.Lookups.WithLabelValues(kind, result).Inc()
	m.LookupDuration.WithLabelValues(kind).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveDownload(result string, bytes int64) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.DownloadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) ObserveClip(outcome string) {
	if m == nil {
		return
	}
	m.Clips.WithLabelValues(outcome).Inc()
}

// MarkFinished records the completion time of a stage.
func (m *Metrics) MarkFinished(stage string, at time.Time) {
	if m == nil {
		return
	}
	m.LastRun.WithLabelValues(stage).Set(float64(at.Unix()))
}

// WriteTextfile atomically writes all metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
