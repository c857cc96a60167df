// Package metrics keeps per-process generation metrics in a private
// Prometheus registry and writes them as a node_exporter textfile.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	reg *prometheus.Registry

	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	levels        *prometheus.GaugeVec
	instances     *prometheus.GaugeVec
	artifactBytes *prometheus.GaugeVec
	violations    *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ilagen_generations_total",
			Help: "Generation runs by style and result",
		}, []string{"style", "result"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ilagen_stage_duration_seconds",
			Help:    "Time spent per pipeline stage",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"stage"}),
		levels: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ilagen_core_levels",
			Help: "Levels of invert look-ahead logic below the top, per width",
		}, []string{"width"}),
		instances: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ilagen_core_instances",
			Help: "Primitive instances in the generated core, per width and component",
		}, []string{"width", "component"}),
		artifactBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ilagen_artifact_bytes",
			Help: "Size of each rendered artifact",
		}, []string{"file", "kind"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ilagen_rule_violations_total",
			Help: "Rule engine findings by rule and severity",
		}, []string{"rule", "severity"}),
	}
}

// ObserveStage records one stage duration.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished generation.
func (r *Recorder) RecordRun(style string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.runs.WithLabelValues(style, result).Inc()
}

// SetDesign records the shape of the core generated for width n.
func (r *Recorder) SetDesign(n, levels int, instances map[string]int) {
	if r == nil {
		return
	}
	w := strconv.Itoa(n)
	r.levels.WithLabelValues(w).Set(float64(levels))
	for component, count := range instances {
		r.instances.WithLabelValues(w, component).Set(float64(count))
	}
}

// SetArtifactBytes records the size of a rendered file.
func (r *Recorder) SetArtifactBytes(file, kind string, n int) {
	if r == nil {
		return
	}
	r.artifactBytes.WithLabelValues(file, kind).Set(float64(n))
}

// AddViolation counts one rule engine finding.
func (r *Recorder) AddViolation(rule, severity string) {
	if r == nil {
		return
	}
	r.violations.WithLabelValues(rule, severity).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}
