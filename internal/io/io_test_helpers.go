package io

import (
	"os"
	"reflect"
	"testing"

	"crm-migrate/internal/model"

	"gopkg.in/yaml.v3" // Use yaml for readable diffs
)

// Helper to create a temporary file with specific content.
// nolint:unused // Used by sibling test files (csv_test.go, etc.)
func createTempFile(t *testing.T, content string, pattern string) string {
	t.Helper()
	tempFile, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file (pattern: %s): %v", pattern, err)
	}
	filePath := tempFile.Name()
	if _, err := tempFile.WriteString(content); err != nil {
		_ = tempFile.Close()
		t.Fatalf("Failed to write to temp file %s: %v", filePath, err)
	}
	if err := tempFile.Close(); err != nil {
		t.Fatalf("Failed to close temp file %s: %v", filePath, err)
	}
	return filePath
}

// compareRecords compares record slices in order, printing YAML on mismatch.
// nolint:unused // Used by sibling test files (csv_test.go, etc.)
func compareRecords(t *testing.T, got, want []model.RawRecord) bool {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		return true
	}
	gotYAML, errGot := yaml.Marshal(got)
	wantYAML, errWant := yaml.Marshal(want)
	if errGot != nil || errWant != nil {
		t.Errorf("Record mismatch (order matters):\ngot:\n%#v\nwant:\n%#v", got, want)
		return false
	}
	t.Errorf("Record mismatch (order matters):\n--- GOT ---\n%s\n--- WANT ---\n%s", string(gotYAML), string(wantYAML))
	return false
}
