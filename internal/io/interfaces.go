package io

import "crm-migrate/internal/model"

// InputReader defines the interface for reading legacy export files.
type InputReader interface {
	// Read parses the file at filePath. The header row is consumed and each
	// remaining row becomes one record keyed by header. Blank lines are skipped.
	Read(filePath string) ([]model.RawRecord, error)
}

// ReportWriter defines the interface for persisting operator diagnostics.
type ReportWriter interface {
	// Write appends one diagnostic to the report.
	Write(d model.Diagnostic) error

	// Close flushes buffered data and releases the underlying file.
	// Implementations should be idempotent.
	Close() error
}
