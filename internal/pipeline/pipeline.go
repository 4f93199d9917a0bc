// Package pipeline sequences the migration stages (transform, validate, load)
// per entity type and aggregates their results into a run summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"crm-migrate/internal/config"
	crmio "crm-migrate/internal/io"
	"crm-migrate/internal/load"
	"crm-migrate/internal/logging"
	"crm-migrate/internal/metrics"
	"crm-migrate/internal/model"
	"crm-migrate/internal/store"
	"crm-migrate/internal/transform"
	"crm-migrate/internal/util"
	"crm-migrate/internal/validate"

	"github.com/google/uuid"
)

var (
	// ErrNoInputs is returned when a run has nothing to work on.
	ErrNoInputs = errors.New("no input files provided")
	// ErrPipelineFailed signals that at least one stage recorded an error.
	ErrPipelineFailed = errors.New("migration finished with errors")
)

// Factory variables, overridden in tests.
var (
	newInputReaderFunc = crmio.NewInputReader
	openStoreFunc      = store.New
	osStatFunc         = os.Stat
	newRunIDFunc       = uuid.NewString
)

// Mode selects which stages a run executes.
type Mode string

const (
	// ModeRun transforms the legacy files, validates and loads.
	ModeRun Mode = "run"
	// ModeTransform only transforms and persists artifacts.
	ModeTransform Mode = "transform"
	// ModeValidate validates previously persisted artifacts.
	ModeValidate Mode = "validate"
	// ModeLoad validates (unless skipped) and loads persisted artifacts.
	ModeLoad Mode = "load"
)

// fromArtifacts reports whether the mode starts from persisted artifacts
// instead of the legacy files.
func (m Mode) fromArtifacts() bool {
	return m == ModeValidate || m == ModeLoad
}

// State is a step of the run state machine.
type State string

const (
	StateTransform State = "transform"
	StateValidate  State = "validate"
	StateLoad      State = "load"
	StateDone      State = "done"
)

// Pipeline runs one migration. It is not reusable across runs.
type Pipeline struct {
	cfg       *config.MigrateConfig
	mode      Mode
	runID     string
	report    crmio.ReportWriter
	metrics   *metrics.Recorder
	validator *validate.Validator
}

// New creates a pipeline for cfg. report may be nil.
func New(cfg *config.MigrateConfig, mode Mode, report crmio.ReportWriter) *Pipeline {
	runID := newRunIDFunc()
	return &Pipeline{
		cfg:       cfg,
		mode:      mode,
		runID:     runID,
		report:    report,
		metrics:   metrics.New(runID),
		validator: validate.New(),
	}
}

// Metrics returns the run's metrics recorder.
func (p *Pipeline) Metrics() *metrics.Recorder {
	return p.metrics
}

// Run executes the stages selected by the mode. The returned summary is
// complete even when individual entities failed; only ErrNoInputs is
// returned as an error.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:  p.runID,
		Mode:   p.mode,
		DryRun: p.cfg.Load.DryRun,
		State:  StateTransform,
	}

	jobs := p.jobs()
	if len(jobs) == 0 {
		if p.mode.fromArtifacts() {
			return summary, fmt.Errorf("%w: no artifacts found in '%s'", ErrNoInputs, p.outputDir())
		}
		return summary, fmt.Errorf("%w: set at least one of contacts, organizations or activities", ErrNoInputs)
	}
	for _, j := range jobs {
		summary.Entities = append(summary.Entities, j.summary())
	}
	logging.WithFields(logging.Info, logging.Fields{"run_id": p.runID, "mode": string(p.mode)},
		"Starting migration for %d entity types", len(jobs))

	// Transform, or restore persisted artifacts.
	for _, j := range jobs {
		started := time.Now()
		var err error
		if p.mode.fromArtifacts() {
			err = j.restore()
		} else {
			err = j.transform()
		}
		p.metrics.ObserveStage(j.entity(), model.StageTransform, time.Since(started))
		if err != nil {
			p.fail(j, model.StageTransform, err)
			continue
		}
		p.writeDiagnostics(j.summary().transformDiagnostics())
	}
	if p.mode == ModeTransform {
		summary.State = StateDone
		return summary, nil
	}

	summary.State = StateValidate
	hasErrors := false
	if p.cfg.Validation.Skip {
		logging.Logf(logging.Warning, "Validation skipped; loading transform output as-is.")
		summary.ValidationSkipped = true
	} else {
		for _, j := range jobs {
			if j.summary().Err != nil {
				continue
			}
			started := time.Now()
			res := j.validate(p.validator)
			p.metrics.ObserveStage(j.entity(), model.StageValidate, time.Since(started))
			p.metrics.ObserveValidation(j.entity(), res)
			j.summary().Validation = &res
			p.writeDiagnostics(j.summary().validationDiagnostics())
			if !res.IsValid {
				hasErrors = true
			}
		}
	}
	if p.mode == ModeValidate {
		summary.State = StateDone
		return summary, nil
	}

	switch {
	case p.cfg.Load.DryRun:
		summary.LoadSkipped = "dry run"
	case hasErrors:
		summary.LoadSkipped = "validation failed"
	}
	if summary.LoadSkipped != "" {
		logging.Logf(logging.Info, "Load skipped: %s.", summary.LoadSkipped)
		summary.State = StateDone
		return summary, nil
	}

	summary.State = StateLoad
	p.loadAll(ctx, jobs)
	summary.State = StateDone
	return summary, nil
}

// loadAll opens the store and loads every healthy entity in load order.
func (p *Pipeline) loadAll(ctx context.Context, jobs []job) {
	s, err := openStoreFunc(ctx, p.cfg.Store)
	if err != nil {
		err = fmt.Errorf("failed to open %s store: %w", p.cfg.Store.Type, err)
		for _, j := range jobs {
			if j.summary().Err == nil {
				p.fail(j, model.StageLoad, err)
			}
		}
		return
	}
	defer func() {
		cerr := s.Close()
		if cerr == nil {
			return
		}
		// Close flushes buffered stores, so records counted as inserted may not be persisted.
		cerr = fmt.Errorf("failed to close %s store: %w", p.cfg.Store.Type, cerr)
		for _, j := range jobs {
			if j.summary().Load != nil && j.summary().Err == nil {
				p.fail(j, model.StageLoad, cerr)
			}
		}
	}()

	loader := load.New(s, p.cfg.Load.BatchSize)
	for _, j := range jobs {
		if j.summary().Err != nil {
			logging.WithFields(logging.Warning, logging.Fields{"entity": string(j.entity())}, "Not loading: earlier stage failed")
			continue
		}
		started := time.Now()
		res, err := j.load(ctx, loader, p.cfg.Load.ActorID)
		p.metrics.ObserveStage(j.entity(), model.StageLoad, time.Since(started))
		p.metrics.ObserveLoad(j.entity(), res)
		j.summary().Load = &res
		p.writeDiagnostics(j.summary().loadDiagnostics())
		if err != nil {
			p.fail(j, model.StageLoad, err)
		}
	}
}

// jobs returns the entities taking part in this run, in load order.
func (p *Pipeline) jobs() []job {
	var jobs []job
	for _, entity := range model.Entities {
		j := newJob(p, entity)
		if p.mode.fromArtifacts() {
			if _, err := osStatFunc(j.summary().ArtifactPath); err != nil {
				logging.Logf(logging.Debug, "No artifact for %s at %s: %v", entity, j.summary().ArtifactPath, err)
				continue
			}
		} else if p.source(entity).File == "" {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// fail records a fatal error for one entity. Its remaining stages are skipped.
func (p *Pipeline) fail(j job, stage string, err error) {
	j.summary().Err = err
	j.summary().FailedStage = stage
	logging.WithFields(logging.Error, logging.Fields{"entity": string(j.entity()), "stage": stage}, "%v", err)
	p.writeDiagnostics([]model.Diagnostic{{
		Entity:   j.entity(),
		Stage:    stage,
		Severity: model.SeverityError,
		Message:  err.Error(),
	}})
}

func (p *Pipeline) writeDiagnostics(diags []model.Diagnostic) {
	if p.report == nil {
		return
	}
	for _, d := range diags {
		if err := p.report.Write(d); err != nil {
			logging.Logf(logging.Error, "Failed to write diagnostic to report: %v", err)
			return
		}
	}
}

func (p *Pipeline) source(entity model.Entity) config.SourceConfig {
	if src := p.cfg.Inputs.Source(string(entity)); src != nil {
		return *src
	}
	return config.SourceConfig{}
}

func (p *Pipeline) outputDir() string {
	return util.ExpandEnvUniversal(p.cfg.OutputDir)
}

// readRows reads the legacy file of an entity and builds its transform options.
func (p *Pipeline) readRows(entity model.Entity) ([]model.RawRecord, transform.Options, error) {
	src := p.source(entity)
	opts := transform.Options{HeaderRows: src.HeaderRows}
	if src.Filter != "" {
		f, err := transform.NewFilter(src.Filter)
		if err != nil {
			return nil, opts, err
		}
		opts.Filter = f
	}

	reader, err := newInputReaderFunc(src)
	if err != nil {
		return nil, opts, fmt.Errorf("failed to create input reader: %w", err)
	}
	path := util.ExpandEnvUniversal(src.File)
	logging.WithFields(logging.Info, logging.Fields{"entity": string(entity)}, "Reading %s", path)
	rows, err := reader.Read(path)
	if err != nil {
		return nil, opts, fmt.Errorf("failed to read input data: %w", err)
	}
	return rows, opts, nil
}
