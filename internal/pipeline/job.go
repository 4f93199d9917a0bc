package pipeline

import (
	"context"

	crmio "crm-migrate/internal/io"
	"crm-migrate/internal/load"
	"crm-migrate/internal/model"
	"crm-migrate/internal/transform"
	"crm-migrate/internal/validate"
)

// job drives the stages of one entity type. Implementations keep the typed
// artifact between stages.
type job interface {
	entity() model.Entity
	summary() *EntitySummary
	transform() error
	restore() error
	validate(v *validate.Validator) model.ValidationResult
	load(ctx context.Context, l *load.Loader, actorID string) (model.LoadResult, error)
}

// entityOps binds the typed stage functions of an entity.
type entityOps[T any] struct {
	transform func([]model.RawRecord, transform.Options) model.Artifact[T]
	validate  func(*validate.Validator, []T) model.ValidationResult
	load      func(*load.Loader, context.Context, []T, string) (model.LoadResult, error)
}

var (
	contactOps = entityOps[model.Contact]{
		transform: transform.TransformContacts,
		validate:  (*validate.Validator).ValidateContacts,
		load:      (*load.Loader).LoadContacts,
	}
	organizationOps = entityOps[model.Organization]{
		transform: transform.TransformOrganizations,
		validate:  (*validate.Validator).ValidateOrganizations,
		load:      (*load.Loader).LoadOrganizations,
	}
	activityOps = entityOps[model.Activity]{
		transform: transform.TransformActivities,
		validate:  (*validate.Validator).ValidateActivities,
		load:      (*load.Loader).LoadActivities,
	}
)

type entityJob[T any] struct {
	p        *Pipeline
	ops      entityOps[T]
	sum      *EntitySummary
	artifact model.Artifact[T]
}

func newJob(p *Pipeline, entity model.Entity) job {
	sum := &EntitySummary{Entity: entity, ArtifactPath: crmio.ArtifactPath(p.outputDir(), entity)}
	switch entity {
	case model.EntityContacts:
		return &entityJob[model.Contact]{p: p, ops: contactOps, sum: sum}
	case model.EntityOrganizations:
		return &entityJob[model.Organization]{p: p, ops: organizationOps, sum: sum}
	default:
		return &entityJob[model.Activity]{p: p, ops: activityOps, sum: sum}
	}
}

func (j *entityJob[T]) entity() model.Entity     { return j.sum.Entity }
func (j *entityJob[T]) summary() *EntitySummary { return j.sum }

// transform reads the legacy file, transforms it and persists the artifact.
func (j *entityJob[T]) transform() error {
	rows, opts, err := j.p.readRows(j.sum.Entity)
	if err != nil {
		return err
	}
	j.artifact = j.ops.transform(rows, opts)
	j.p.metrics.ObserveTransform(j.sum.Entity, j.artifact.Stats)
	j.record()
	j.sum.TransformErrors = j.artifact.Errors
	return crmio.WriteArtifact(j.sum.ArtifactPath, j.artifact)
}

// restore loads a previously persisted artifact. Its transform diagnostics
// belong to the run that wrote it and are not carried over.
func (j *entityJob[T]) restore() error {
	art, err := crmio.ReadArtifact[T](j.sum.ArtifactPath)
	if err != nil {
		return err
	}
	j.artifact = art
	j.record()
	return nil
}

func (j *entityJob[T]) record() {
	j.sum.Stats = j.artifact.Stats
	j.sum.Records = len(j.artifact.Data)
}

func (j *entityJob[T]) validate(v *validate.Validator) model.ValidationResult {
	return j.ops.validate(v, j.artifact.Data)
}

func (j *entityJob[T]) load(ctx context.Context, l *load.Loader, actorID string) (model.LoadResult, error) {
	return j.ops.load(l, ctx, j.artifact.Data, actorID)
}
