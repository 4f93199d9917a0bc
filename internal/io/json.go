package io

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"crm-migrate/internal/logging"
	"crm-migrate/internal/model"
)

// ArtifactPath returns the artifact file for an entity inside dir.
func ArtifactPath(dir string, entity model.Entity) string {
	return filepath.Join(dir, string(entity)+".json")
}

// WriteArtifact saves a transform artifact as indented JSON with a trailing
// newline, creating the directory if needed.
func WriteArtifact[T any](filePath string, artifact model.Artifact[T]) error {
	logging.Logf(logging.Debug, "Writing artifact with %d records to file: %s", len(artifact.Data), filePath)

	dir := filepath.Dir(filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for artifact '%s': %w", filePath, err)
		}
	}

	// The file always carries all three keys, even for an empty run.
	if artifact.Data == nil {
		artifact.Data = []T{}
	}
	if artifact.Errors == nil {
		artifact.Errors = []model.TransformError{}
	}
	if artifact.Stats.FieldsTransformed == nil {
		artifact.Stats.FieldsTransformed = map[string]int{}
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact to JSON: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact '%s': %w", filePath, err)
	}
	logging.Logf(logging.Debug, "Wrote artifact %s", filePath)
	return nil
}

// ReadArtifact loads a transform artifact written by WriteArtifact.
func ReadArtifact[T any](filePath string) (model.Artifact[T], error) {
	var artifact model.Artifact[T]
	logging.Logf(logging.Debug, "Reading artifact: %s", filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return artifact, fmt.Errorf("failed to read artifact '%s': %w", filePath, err)
	}
	if err := json.Unmarshal(data, &artifact); err != nil {
		return artifact, fmt.Errorf("failed to unmarshal artifact '%s': %w", filePath, err)
	}
	if artifact.Data == nil {
		artifact.Data = []T{}
	}
	if artifact.Errors == nil {
		artifact.Errors = []model.TransformError{}
	}
	logging.Logf(logging.Debug, "Read artifact %s with %d records", filePath, len(artifact.Data))
	return artifact, nil
}
