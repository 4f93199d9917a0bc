package io

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"crm-migrate/internal/logging"
	"crm-migrate/internal/model"
)

// utf8BOM is stripped from the first header; spreadsheet tools add it to CSV exports.
const utf8BOM = "\uFEFF"

// CSVReader implements the InputReader interface for delimited text exports.
// It supports configurable delimiters and comment characters.
type CSVReader struct {
	Delimiter   rune // Field delimiter (e.g., ',', '\t').
	CommentChar rune // Character indicating a comment line (e.g., '#'). 0 disables.
}

// NewCSVReader creates a CSVReader with options derived from SourceConfig.
func NewCSVReader(delimiter, commentChar string) (*CSVReader, error) {
	var delim rune = ',' // Default delimiter
	var comment rune     // Default comment (0 / disabled)

	if delimiter != "" {
		if utf8.RuneCountInString(delimiter) != 1 {
			return nil, fmt.Errorf("invalid delimiter '%s': must be a single character", delimiter)
		}
		delim = []rune(delimiter)[0]
	}

	if commentChar != "" {
		if utf8.RuneCountInString(commentChar) != 1 {
			return nil, fmt.Errorf("invalid comment character '%s': must be a single character or empty", commentChar)
		}
		comment = []rune(commentChar)[0]
	}
	if comment != 0 && comment == delim {
		return nil, fmt.Errorf("comment character '%c' cannot equal the delimiter", comment)
	}

	return &CSVReader{
		Delimiter:   delim,
		CommentChar: comment,
	}, nil
}

// Read loads the rows of a delimited file. Rows shorter than the header are
// padded with blanks and longer rows are truncated, each with a warning.
func (cr *CSVReader) Read(filePath string) ([]model.RawRecord, error) {
	logging.Logf(logging.Debug, "CSVReader reading file: %s (Delimiter: '%c', Comment: '%c')", filePath, cr.Delimiter, cr.CommentChar)

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("CSVReader failed to open file '%s': %w", filePath, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = cr.Delimiter
	if cr.CommentChar != 0 {
		reader.Comment = cr.CommentChar
	}
	reader.FieldsPerRecord = -1 // Ragged rows are handled below
	reader.LazyQuotes = true    // Legacy exports often carry stray quotes

	allRows, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("CSVReader parse error in '%s' on line %d, column %d: %w", filePath, parseErr.Line, parseErr.Column, parseErr.Err)
		}
		return nil, fmt.Errorf("CSVReader failed to read rows from '%s': %w", filePath, err)
	}

	records := make([]model.RawRecord, 0)
	if len(allRows) < 2 {
		if len(allRows) == 0 {
			logging.Logf(logging.Warning, "CSV file '%s' is empty or contains no data", filePath)
		} else {
			logging.Logf(logging.Warning, "CSV file '%s' contains only a header row", filePath)
		}
		return records, nil
	}

	headers, ok := cleanHeaders(allRows[0], filePath)
	if !ok {
		return records, nil
	}
	numHeaders := len(allRows[0])

	for i, row := range allRows[1:] {
		rowNum := i + 2 // 1-based line in the file, header included
		if isBlankRow(row) {
			logging.Logf(logging.Debug, "CSVReader: skipping blank row %d in '%s'", rowNum, filePath)
			continue
		}
		if len(row) != numHeaders {
			logging.Logf(logging.Warning, "CSVReader: Row %d in '%s' has %d fields, expected %d; missing fields are blank and extra fields are dropped", rowNum, filePath, len(row), numHeaders)
		}
		records = append(records, buildRecord(headers, row))
	}

	logging.Logf(logging.Debug, "CSVReader successfully loaded %d records from %s", len(records), filePath)
	return records, nil
}

// cleanHeaders trims the header row and maps column index to header name.
// Blank headers are dropped. It returns false when no usable header remains.
func cleanHeaders(raw []string, source string) (map[int]string, bool) {
	headers := make(map[int]string, len(raw))
	seen := make(map[string]int)
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header := strings.TrimSpace(h)
		if header == "" {
			logging.Logf(logging.Warning, "Empty header found in column %d of '%s'; this column will be skipped", i+1, source)
			continue
		}
		seen[header]++
		if seen[header] > 1 {
			logging.Logf(logging.Warning, "Duplicate header '%s' found at column %d in '%s'; data for this header name will represent the last occurring column", header, i+1, source)
		}
		headers[i] = header
	}
	if len(headers) == 0 {
		logging.Logf(logging.Warning, "No valid headers found in '%s'; returning empty dataset", source)
		return nil, false
	}
	return headers, true
}

// buildRecord maps a row onto the headers. Every header is present in the result.
func buildRecord(headers map[int]string, row []string) model.RawRecord {
	rec := make(model.RawRecord, len(headers))
	for _, name := range headers {
		if _, exists := rec[name]; !exists {
			rec[name] = ""
		}
	}
	for colIdx := 0; colIdx < len(row); colIdx++ {
		if name, ok := headers[colIdx]; ok {
			rec[name] = row[colIdx]
		}
	}
	return rec
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// --- Diagnostic report ---

// diagnosticHeaders is the fixed column layout of the diagnostics report.
var diagnosticHeaders = []string{"entity", "stage", "row", "field", "value", "severity", "message"}

// DiagnosticWriter implements the ReportWriter interface, appending
// diagnostics to a CSV file.
type DiagnosticWriter struct {
	filePath string
	writer   *csv.Writer
	file     *os.File
	mu       sync.Mutex
	closed   bool
}

// NewDiagnosticWriter opens the report file in append mode. The header is
// written only when the file is new or empty.
func NewDiagnosticWriter(filePath string) (*DiagnosticWriter, error) {
	dir := filepath.Dir(filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("DiagnosticWriter failed to create directory for '%s': %w", filePath, err)
		}
	}
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("DiagnosticWriter failed to open/create file '%s': %w", filePath, err)
	}

	dw := &DiagnosticWriter{filePath: filePath, file: f, writer: csv.NewWriter(f)}
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		logging.Logf(logging.Debug, "Writing header to diagnostics file '%s'", filePath)
		if err := dw.writeRow(diagnosticHeaders); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return dw, nil
}

// Write appends one diagnostic. Returns an error if called after Close.
func (dw *DiagnosticWriter) Write(d model.Diagnostic) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.closed {
		return errors.New("DiagnosticWriter: write called on closed writer")
	}
	row := []string{
		string(d.Entity),
		d.Stage,
		strconv.Itoa(d.Row),
		d.Field,
		d.Value,
		string(d.Severity),
		d.Message,
	}
	return dw.writeRow(row)
}

// writeRow writes and flushes so the report survives a crash mid-run.
func (dw *DiagnosticWriter) writeRow(row []string) error {
	if err := dw.writer.Write(row); err != nil {
		return fmt.Errorf("DiagnosticWriter failed to write row to '%s': %w", dw.filePath, err)
	}
	dw.writer.Flush()
	if err := dw.writer.Error(); err != nil {
		return fmt.Errorf("DiagnosticWriter error after flushing row to '%s': %w", dw.filePath, err)
	}
	return nil
}

// Close flushes buffered data and closes the file. Safe to call multiple times.
func (dw *DiagnosticWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.closed {
		return nil
	}
	dw.closed = true

	var firstErr error
	dw.writer.Flush()
	if err := dw.writer.Error(); err != nil {
		firstErr = fmt.Errorf("DiagnosticWriter flush error on close for '%s': %w", dw.filePath, err)
		logging.Logf(logging.Error, "%v", firstErr)
	}
	if err := dw.file.Close(); err != nil {
		closeErr := fmt.Errorf("DiagnosticWriter file close error for '%s': %w", dw.filePath, err)
		logging.Logf(logging.Error, "%v", closeErr)
		if firstErr == nil {
			firstErr = closeErr
		}
	}
	if firstErr == nil {
		logging.Logf(logging.Debug, "DiagnosticWriter closed successfully: %s", dw.filePath)
	}
	return firstErr
}
