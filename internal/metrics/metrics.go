// Package metrics records per-run migration counters for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"crm-migrate/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crm_migrate"

// Recorder holds the metrics of one run on its own registry, so repeated runs
// in one process (and tests) never collide.
type Recorder struct {
	registry *prometheus.Registry

	transformRows    *prometheus.CounterVec
	validationIssues *prometheus.CounterVec
	loadRecords      *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	lastRun          prometheus.Gauge
}

// New creates a Recorder labelled with the run id.
func New(runID string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"run_id": runID}, reg))
	return &Recorder{
		registry: reg,
		transformRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_rows_total",
			Help:      "Legacy rows seen by the transform stage, by outcome.",
		}, []string{"entity", "outcome"}),
		validationIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_issues_total",
			Help:      "Validation errors and warnings.",
		}, []string{"entity", "severity"}),
		loadRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_records_total",
			Help:      "Records handled by the load stage, by outcome.",
		}, []string{"entity", "outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets: []float64{
				0.01, 0.05,
				0.1, 0.5,
				1, 5, 10, 30,
				60, 300,
			},
		}, []string{"entity", "stage"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}
}

// ObserveTransform records the row outcomes of one transform call.
func (r *Recorder) ObserveTransform(entity model.Entity, s model.Stats) {
	e := string(entity)
	r.transformRows.WithLabelValues(e, "success").Add(float64(s.SuccessfulRows))
	r.transformRows.WithLabelValues(e, "error").Add(float64(s.ErrorRows))
	r.transformRows.WithLabelValues(e, "duplicate").Add(float64(s.DuplicateRows))
	r.transformRows.WithLabelValues(e, "filtered").Add(float64(s.FilteredRows))
}

// ObserveValidation records the issues of one validation call.
func (r *Recorder) ObserveValidation(entity model.Entity, res model.ValidationResult) {
	e := string(entity)
	r.validationIssues.WithLabelValues(e, string(model.SeverityError)).Add(float64(len(res.Errors)))
	r.validationIssues.WithLabelValues(e, string(model.SeverityWarning)).Add(float64(len(res.Warnings)))
}

// ObserveLoad records the outcome of one load call.
func (r *Recorder) ObserveLoad(entity model.Entity, res model.LoadResult) {
	e := string(entity)
	r.loadRecords.WithLabelValues(e, "inserted").Add(float64(res.Inserted))
	r.loadRecords.WithLabelValues(e, "failed").Add(float64(res.Failed))
	r.loadRecords.WithLabelValues(e, "skipped").Add(float64(res.Skipped))
}

// ObserveStage records how long a stage took for an entity.
func (r *Recorder) ObserveStage(entity model.Entity, stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(string(entity), stage).Observe(d.Seconds())
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile stamps the finish time and writes every metric to path in
// the Prometheus text format. The write is atomic.
func (r *Recorder) WriteTextfile(path string) error {
	r.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to '%s': %w", path, err)
	}
	return nil
}
