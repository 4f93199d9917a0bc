package config

// Define constants for configuration keys, types, modes etc.
const (
	SourceTypeCSV  = "csv"
	SourceTypeXLSX = "xlsx"

	StoreTypePostgres = "postgres"
	StoreTypeFile     = "file"

	DefaultLogLevel     = "info"
	DefaultCSVDelimiter = ","
	DefaultOutputDir    = "migration-output"
	DefaultStoreDir     = "migration-store"
	DefaultBatchSize    = 100
	DefaultHeaderRows   = 1
	DefaultActorID      = "migration"
	DefaultPreviewLimit = 5
	DefaultStoreTimeout = "30s"
)

// MigrateConfig defines the overall structure of the migration configuration YAML file.
type MigrateConfig struct {
	// Logging configuration specifies the verbosity level.
	Logging LoggingConfig `yaml:"logging"`
	// Inputs lists the legacy export per entity type. Entities without a file are skipped.
	Inputs InputsConfig `yaml:"inputs"`
	// OutputDir receives the <entity>.json transform artifacts. Environment variables are expanded.
	OutputDir string `yaml:"outputDir"`
	// Validation controls the validate stage.
	Validation ValidationConfig `yaml:"validation"`
	// Load controls the load stage.
	Load LoadStageConfig `yaml:"load"`
	// Store selects and configures the target store.
	Store StoreConfig `yaml:"store"`
	// Report configures operator-facing output.
	Report ReportConfig `yaml:"report"`
	// Metrics configures the Prometheus textfile export.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig holds settings related to logging verbosity.
type LoggingConfig struct {
	// Level defines the logging detail ("none", "error", "warn", "info", "debug").
	// Defaults to "info".
	Level string `yaml:"level"`
}

// InputsConfig holds one source per entity type.
type InputsConfig struct {
	Contacts      SourceConfig `yaml:"contacts"`
	Organizations SourceConfig `yaml:"organizations"`
	Activities    SourceConfig `yaml:"activities"`
}

// SourceConfig details one legacy export file.
type SourceConfig struct {
	// File is the path to the export. Environment variables are expanded.
	File string `yaml:"file,omitempty"`
	// Type is "csv" or "xlsx". Inferred from the file extension when empty.
	Type string `yaml:"type,omitempty"`
	// Filter is an optional govaluate expression evaluated against each raw row.
	// Columns are referenced by their lower-case alphanumeric header,
	// e.g. "leadstatus != 'Spam'". Rows evaluating to false are skipped.
	Filter string `yaml:"filter,omitempty"`
	// HeaderRows is the number of lines before the first data row, used for
	// reported row numbers. Defaults to 1.
	HeaderRows int `yaml:"headerRows,omitempty"`

	// --- Format Specific Options ---
	// CSV Delimiter character (default: ","). Use '\t' for tab.
	Delimiter string `yaml:"delimiter,omitempty"`
	// CSV Comment character (e.g., "#"). Lines starting with this char are ignored.
	CommentChar string `yaml:"commentChar,omitempty"`
	// XLSX Sheet name to read from. Takes precedence over SheetIndex.
	SheetName string `yaml:"sheetName,omitempty"`
	// XLSX Sheet index (0-based). Defaults to the active sheet.
	SheetIndex *int `yaml:"sheetIndex,omitempty"`
}

// ValidationConfig controls the validate stage.
type ValidationConfig struct {
	// Skip bypasses validation; load then runs on the transform output as-is.
	Skip bool `yaml:"skip,omitempty"`
}

// LoadStageConfig controls the load stage.
type LoadStageConfig struct {
	// DryRun stops the pipeline after validation.
	DryRun bool `yaml:"dryRun,omitempty"`
	// BatchSize is the chunk size for bulk inserts. Defaults to 100.
	BatchSize int `yaml:"batchSize,omitempty"`
	// ActorID is recorded as created_by on every stored record.
	ActorID string `yaml:"actorId,omitempty"`
}

// StoreConfig selects the target store.
type StoreConfig struct {
	// Type is "postgres" or "file". Defaults to "file".
	Type string `yaml:"type,omitempty"`
	// DSN is the PostgreSQL connection string. Usually supplied through
	// DB_CREDENTIALS or -db rather than the file.
	DSN string `yaml:"dsn,omitempty"`
	// Dir is where the file store keeps its collections.
	Dir string `yaml:"dir,omitempty"`
	// Tables overrides the table name per collection for the postgres store.
	Tables map[string]string `yaml:"tables,omitempty"`
	// Timeout bounds every store call, as a Go duration. Defaults to 30s.
	Timeout string `yaml:"timeout,omitempty"`
}

// ReportConfig configures operator output.
type ReportConfig struct {
	// File, when set, receives every diagnostic as CSV.
	File string `yaml:"file,omitempty"`
	// PreviewLimit caps the diagnostics printed per entity and stage. Defaults to 5.
	PreviewLimit int `yaml:"previewLimit,omitempty"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in Prometheus text format.
	Textfile string `yaml:"textfile,omitempty"`
}

// Source returns the input configuration for an entity name.
func (c *InputsConfig) Source(entity string) *SourceConfig {
	switch entity {
	case "contacts":
		return &c.Contacts
	case "organizations":
		return &c.Organizations
	case "activities":
		return &c.Activities
	default:
		return nil
	}
}
