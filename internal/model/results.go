package model

// Severity classifies a transform diagnostic.
type Severity string

const (
	// SeverityError drops the source row from transform output.
	SeverityError Severity = "error"
	// SeverityWarning flags the row but keeps it.
	SeverityWarning Severity = "warning"
)

// TransformError is a row-level diagnostic raised while transforming a legacy file.
// Row is the human-readable line number in the source file; 0 means the row is
// unknown (batch-level diagnostics such as duplicates).
type TransformError struct {
	Row      int      `json:"row"`
	Field    string   `json:"field"`
	Value    string   `json:"value,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Stats summarizes one transform call. It is computed once and never mutated.
type Stats struct {
	TotalRows         int            `json:"totalRows"`
	SuccessfulRows    int            `json:"successfulRows"`
	ErrorRows         int            `json:"errorRows"`
	WarningCount      int            `json:"warningCount"`
	FieldsTransformed map[string]int `json:"fieldsTransformed"`
	DuplicateRows     int            `json:"duplicateRows,omitempty"`
	FilteredRows      int            `json:"filteredRows,omitempty"`
}

// Artifact is the persisted output of a transform call and the input of the
// validate and load stages. The three-field JSON shape is a file contract.
type Artifact[T any] struct {
	Data   []T              `json:"data"`
	Errors []TransformError `json:"errors"`
	Stats  Stats            `json:"stats"`
}

// ErrorCount returns the number of error-severity diagnostics.
func (a Artifact[T]) ErrorCount() int {
	n := 0
	for _, e := range a.Errors {
		if e.Severity == SeverityError {
			n++
		}
	}
	return n
}

// ValidationIssue is a validation error or warning. Index points into the
// validated batch, not into the source file.
type ValidationIssue struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ValidationResult is the outcome of validating one batch.
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// LoadError identifies a record (or, for aggregated skips, a chunk) that was not loaded.
type LoadError struct {
	Index  int         `json:"index"`
	Record interface{} `json:"record"`
	Error  string      `json:"error"`
}

// LoadResult accumulates the outcome of loading one entity batch.
type LoadResult struct {
	Success  bool        `json:"success"`
	Inserted int         `json:"inserted"`
	Failed   int         `json:"failed"`
	Skipped  int         `json:"skipped,omitempty"`
	Errors   []LoadError `json:"errors"`
}

// Pipeline stages, as named in reports.
const (
	StageTransform = "transform"
	StageValidate  = "validate"
	StageLoad      = "load"
)

// Diagnostic is one operator-facing issue from any stage, flattened for reports.
// Row is the source line for transform diagnostics and the batch index otherwise.
type Diagnostic struct {
	Entity   Entity   `json:"entity"`
	Stage    string   `json:"stage"`
	Row      int      `json:"row"`
	Field    string   `json:"field,omitempty"`
	Value    string   `json:"value,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
