package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitebuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration    *prom.HistogramVec
	buildDuration    prom.Histogram
	stageResults     *prom.CounterVec
	buildOutcome     *prom.CounterVec
	rendered         *prom.CounterVec
	filesWritten     *prom.CounterVec
	libraryDocuments *prom.GaugeVec
	liveReload       prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		rendered: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rendered_documents_total",
			Help:      "Rendered documents by kind",
		}, []string{"kind"}),
		filesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Materialized artifacts by target",
		}, []string{"target"}),
		libraryDocuments: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "library_documents",
			Help:      "Documents in the content graph after the last load",
		}, []string{"kind"}),
		liveReload: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.rendered, pr.filesWritten, pr.libraryDocuments, pr.liveReload)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddRendered(kind string, n int) {
	if n <= 0 {
		return
	}
	p.rendered.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) IncFileWritten(target string) {
	p.filesWritten.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) SetLibrarySize(pages, sections int) {
	p.libraryDocuments.WithLabelValues("page").Set(float64(pages))
	p.libraryDocuments.WithLabelValues("section").Set(float64(sections))
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	p.liveReload.Set(float64(n))
}
