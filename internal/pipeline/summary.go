package pipeline

import (
	"fmt"
	"io"
	"strings"

	"crm-migrate/internal/model"
)

// EntitySummary is the outcome of every stage for one entity type. Stage
// results are nil when the stage did not run.
type EntitySummary struct {
	Entity          model.Entity
	ArtifactPath    string
	Records         int
	Stats           model.Stats
	TransformErrors []model.TransformError
	Validation      *model.ValidationResult
	Load            *model.LoadResult
	// Err is the fatal error that stopped this entity, raised in FailedStage.
	Err         error
	FailedStage string
}

// Failed reports whether any stage recorded an error for the entity.
func (e *EntitySummary) Failed() bool {
	if e.Err != nil {
		return true
	}
	for _, te := range e.TransformErrors {
		if te.Severity == model.SeverityError {
			return true
		}
	}
	if e.Validation != nil && !e.Validation.IsValid {
		return true
	}
	return e.Load != nil && !e.Load.Success
}

// Summary is the aggregate result of a run.
type Summary struct {
	RunID             string
	Mode              Mode
	State             State
	DryRun            bool
	ValidationSkipped bool
	// LoadSkipped explains why the load stage did not run, if it was expected to.
	LoadSkipped string
	Entities    []*EntitySummary
}

// Failed reports whether the process should exit unsuccessfully.
func (s *Summary) Failed() bool {
	for _, e := range s.Entities {
		if e.Failed() {
			return true
		}
	}
	return false
}

// Err returns ErrPipelineFailed, naming the failed entities, when the run failed.
func (s *Summary) Err() error {
	var failed []string
	for _, e := range s.Entities {
		if e.Failed() {
			failed = append(failed, string(e.Entity))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPipelineFailed, strings.Join(failed, ", "))
}

func (e *EntitySummary) transformDiagnostics() []model.Diagnostic {
	out := make([]model.Diagnostic, 0, len(e.TransformErrors))
	for _, te := range e.TransformErrors {
		out = append(out, model.Diagnostic{
			Entity:   e.Entity,
			Stage:    model.StageTransform,
			Row:      te.Row,
			Field:    te.Field,
			Value:    te.Value,
			Severity: te.Severity,
			Message:  te.Message,
		})
	}
	return out
}

func (e *EntitySummary) validationDiagnostics() []model.Diagnostic {
	if e.Validation == nil {
		return nil
	}
	out := make([]model.Diagnostic, 0, len(e.Validation.Errors)+len(e.Validation.Warnings))
	add := func(issues []model.ValidationIssue, sev model.Severity) {
		for _, is := range issues {
			out = append(out, model.Diagnostic{
				Entity:   e.Entity,
				Stage:    model.StageValidate,
				Row:      is.Index,
				Field:    is.Field,
				Value:    is.Value,
				Severity: sev,
				Message:  is.Message,
			})
		}
	}
	add(e.Validation.Errors, model.SeverityError)
	add(e.Validation.Warnings, model.SeverityWarning)
	return out
}

func (e *EntitySummary) loadDiagnostics() []model.Diagnostic {
	if e.Load == nil {
		return nil
	}
	out := make([]model.Diagnostic, 0, len(e.Load.Errors))
	for _, le := range e.Load.Errors {
		out = append(out, model.Diagnostic{
			Entity:   e.Entity,
			Stage:    model.StageLoad,
			Row:      le.Index,
			Severity: model.SeverityError,
			Message:  le.Error,
		})
	}
	return out
}

// PrintSummary writes the human-readable run report to w. At most limit
// diagnostics are listed per entity and stage.
func PrintSummary(w io.Writer, s *Summary, limit int) {
	fmt.Fprintf(w, "Migration run %s (%s)\n", s.RunID, s.Mode)
	for _, e := range s.Entities {
		fmt.Fprintf(w, "\n%s:\n", e.Entity)
		if e.Stats.TotalRows > 0 || len(e.TransformErrors) > 0 || e.Records > 0 {
			fmt.Fprintf(w, "  transform: %d rows, %d records, %d errors, %d warnings, %d duplicates",
				e.Stats.TotalRows, e.Records, e.Stats.ErrorRows, e.Stats.WarningCount, e.Stats.DuplicateRows)
			if e.Stats.FilteredRows > 0 {
				fmt.Fprintf(w, ", %d filtered", e.Stats.FilteredRows)
			}
			fmt.Fprintln(w)
			printPreview(w, e.transformDiagnostics(), limit)
		}
		if v := e.Validation; v != nil {
			status := "passed"
			if !v.IsValid {
				status = "failed"
			}
			fmt.Fprintf(w, "  validate: %s, %d errors, %d warnings\n", status, len(v.Errors), len(v.Warnings))
			printPreview(w, e.validationDiagnostics(), limit)
		}
		if l := e.Load; l != nil {
			fmt.Fprintf(w, "  load: %d inserted, %d failed, %d skipped\n", l.Inserted, l.Failed, l.Skipped)
			printPreview(w, e.loadDiagnostics(), limit)
		}
		if e.Err != nil {
			fmt.Fprintf(w, "  aborted during %s: %v\n", e.FailedStage, e.Err)
		}
	}
	fmt.Fprintln(w)
	if s.ValidationSkipped {
		fmt.Fprintln(w, "Validation skipped.")
	}
	if s.LoadSkipped != "" {
		fmt.Fprintf(w, "Load skipped: %s.\n", s.LoadSkipped)
	}
	if s.Failed() {
		fmt.Fprintln(w, "Result: FAILED")
	} else {
		fmt.Fprintln(w, "Result: OK")
	}
}

func printPreview(w io.Writer, diags []model.Diagnostic, limit int) {
	for i, d := range diags {
		if i == limit {
			fmt.Fprintf(w, "    ...and %d more\n", len(diags)-limit)
			return
		}
		fmt.Fprintf(w, "    %s\n", formatDiagnostic(d))
	}
}

func formatDiagnostic(d model.Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", d.Severity)
	switch d.Stage {
	case model.StageTransform:
		if d.Row > 0 {
			fmt.Fprintf(&b, "row %d ", d.Row)
		}
	default:
		fmt.Fprintf(&b, "#%d ", d.Row)
	}
	if d.Field != "" {
		fmt.Fprintf(&b, "%s: ", d.Field)
	}
	b.WriteString(d.Message)
	if d.Value != "" {
		fmt.Fprintf(&b, " (%q)", d.Value)
	}
	return b.String()
}
