// Package transform turns raw legacy rows into normalized contacts, organizations
// and activities, collecting row-level diagnostics and batch statistics.
package transform

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"crm-migrate/internal/dedup"
	"crm-migrate/internal/logging"
	"crm-migrate/internal/model"
	"crm-migrate/internal/util"
)

// DefaultHeaderRows is the number of file lines preceding the first data row.
const DefaultHeaderRows = 1

// RowFilter decides whether a raw row takes part in a transform.
type RowFilter interface {
	Keep(row model.RawRecord) (bool, error)
}

// Options tunes a transform call. The zero value is usable.
type Options struct {
	// HeaderRows offsets reported row numbers; zero means DefaultHeaderRows.
	HeaderRows int
	// Filter, when set, drops rows it rejects before any other processing.
	Filter RowFilter
}

func (o Options) headerRows() int {
	if o.HeaderRows <= 0 {
		return DefaultHeaderRows
	}
	return o.HeaderRows
}

// expressionEvaluator is the subset of *govaluate.EvaluableExpression used here.
type expressionEvaluator interface {
	Evaluate(map[string]interface{}) (interface{}, error)
}

// newExpressionEvaluatorFunc is swapped in tests.
var newExpressionEvaluatorFunc = func(expr string) (expressionEvaluator, error) {
	evalExpr, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, err
	}
	return evalExpr, nil
}

// ExpressionFilter is a RowFilter backed by a govaluate expression. Columns are
// exposed under their model.HeaderKey, e.g. `leadsource != 'Spam'`.
type ExpressionFilter struct {
	expr string
	eval expressionEvaluator
}

// NewFilter compiles expr into a row filter.
func NewFilter(expr string) (*ExpressionFilter, error) {
	eval, err := newExpressionEvaluatorFunc(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression '%s': %w", expr, err)
	}
	return &ExpressionFilter{expr: expr, eval: eval}, nil
}

// Keep evaluates the expression against row. A non-boolean result is an error.
func (f *ExpressionFilter) Keep(row model.RawRecord) (bool, error) {
	result, err := f.eval.Evaluate(row.Fields())
	if err != nil {
		return false, fmt.Errorf("filter eval error: %w", err)
	}
	keep, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter returned non-bool: %T (%v)", result, result)
	}
	return keep, nil
}

// String returns the source expression.
func (f *ExpressionFilter) String() string {
	return f.expr
}

// rowDiagnostics collects the diagnostics of one source row.
type rowDiagnostics struct {
	row    int
	items  []model.TransformError
	failed bool
}

func (d *rowDiagnostics) errorf(field, value, format string, args ...interface{}) {
	d.failed = true
	d.add(model.SeverityError, field, value, format, args...)
}

func (d *rowDiagnostics) warnf(field, value, format string, args ...interface{}) {
	d.add(model.SeverityWarning, field, value, format, args...)
}

func (d *rowDiagnostics) add(sev model.Severity, field, value, format string, args ...interface{}) {
	d.items = append(d.items, model.TransformError{
		Row:      d.row,
		Field:    field,
		Value:    value,
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
	})
}

// entityRules describes how one entity type is transformed.
type entityRules[T any] struct {
	entity   model.Entity
	convert  func(row model.RawRecord, d *rowDiagnostics) T
	key      func(T) string
	keyField string
	count    func(T, map[string]int)
}

// run drives the common algorithm: filter, convert each row, drop rows with
// errors, dedup the survivors and derive statistics.
func run[T any](rows []model.RawRecord, opts Options, rules entityRules[T]) model.Artifact[T] {
	art := model.Artifact[T]{
		Data:   []T{},
		Errors: []model.TransformError{},
		Stats:  model.Stats{TotalRows: len(rows), FieldsTransformed: map[string]int{}},
	}
	emitted := make([]T, 0, len(rows))
	emittedRows := make([]int, 0, len(rows))

	for i, raw := range rows {
		d := &rowDiagnostics{row: i + 1 + opts.headerRows()}

		if opts.Filter != nil {
			keep, err := opts.Filter.Keep(raw)
			if err != nil {
				d.errorf("filter", "", "%v", err)
				logging.Logf(logging.Debug, "Transform %s: filter failed on row %d: %v. Row (masked): %v", rules.entity, d.row, err, util.MaskRecord(raw))
			} else if !keep {
				art.Stats.FilteredRows++
				continue
			}
		}

		var rec T
		if !d.failed {
			rec = rules.convert(raw, d)
		}
		art.Errors = append(art.Errors, d.items...)
		if d.failed {
			art.Stats.ErrorRows++
			logging.Logf(logging.Debug, "Transform %s: dropped row %d. Row (masked): %v", rules.entity, d.row, util.MaskRecord(raw))
			continue
		}
		emitted = append(emitted, rec)
		emittedRows = append(emittedRows, d.row)
	}

	parts := dedup.Partition(emitted, rules.key)
	for _, dup := range parts.Duplicates {
		art.Errors = append(art.Errors, model.TransformError{
			Row:      0,
			Field:    rules.keyField,
			Value:    dup.Key,
			Message:  fmt.Sprintf("duplicate of row %d; removed", emittedRows[dup.FirstIndex]),
			Severity: model.SeverityWarning,
		})
	}
	art.Data = parts.Unique
	art.Stats.DuplicateRows = len(parts.Duplicates)
	art.Stats.SuccessfulRows = len(art.Data)
	for _, e := range art.Errors {
		if e.Severity == model.SeverityWarning {
			art.Stats.WarningCount++
		}
	}
	for _, rec := range art.Data {
		rules.count(rec, art.Stats.FieldsTransformed)
	}

	logging.WithFields(logging.Info, logging.Fields{"entity": string(rules.entity)},
		"Transform complete: %d rows, %d emitted, %d errors, %d warnings, %d duplicates, %d filtered",
		art.Stats.TotalRows, art.Stats.SuccessfulRows, art.Stats.ErrorRows, art.Stats.WarningCount,
		art.Stats.DuplicateRows, art.Stats.FilteredRows)
	return art
}

// countIf increments counts[field] when set is true.
func countIf(counts map[string]int, field string, set bool) {
	if set {
		counts[field]++
	}
}
