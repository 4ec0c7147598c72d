package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "skelbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration    *prom.HistogramVec
	buildDuration    prom.Histogram
	buildOutcome     *prom.CounterVec
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
	queueDepth       prom.Gauge
	activeBuilds     prom.Gauge
	artifactSize     prom.Histogram
	purged           *prom.CounterVec
	downloads        prom.Counter
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time from BUILDING to a terminal status",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_retries_total",
			Help:      "Pipeline retries after transient failures",
		}, []string{"stage"}),
		retriesExhausted: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_retry_exhausted_total",
			Help:      "Builds failed after exhausting retries",
		}, []string{"stage"}),
		queueDepth: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Build requests waiting for a worker",
		}),
		activeBuilds: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "active_builds",
			Help:      "Build requests currently BUILDING",
		}),
		artifactSize: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_size_bytes",
			Help:      "Size of published archives",
			Buckets:   prom.ExponentialBuckets(1024, 4, 8),
		}),
		purged: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_purged_total",
			Help:      "Artifacts removed by the retention sweep",
		}, []string{"reason"}),
		downloads: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Completed artifact downloads",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.retries, pr.retriesExhausted,
		pr.queueDepth, pr.activeBuilds, pr.artifactSize, pr.purged, pr.downloads)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncBuildRetry(stage string) {
	if p == nil {
		return
	}
	p.retries.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) IncBuildRetryExhausted(stage string) {
	if p == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

func (p *PrometheusRecorder) SetActiveBuilds(n int) {
	if p == nil {
		return
	}
	p.activeBuilds.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveArtifactSize(bytes int64) {
	if p == nil {
		return
	}
	p.artifactSize.Observe(float64(bytes))
}

func (p *PrometheusRecorder) IncArtifactsPurged(reason string) {
	if p == nil {
		return
	}
	p.purged.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncDownloads() {
	if p == nil {
		return
	}
	p.downloads.Inc()
}
