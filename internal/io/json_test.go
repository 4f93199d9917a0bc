package io

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"crm-migrate/internal/model"
)

func TestWriteAndReadArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path := ArtifactPath(dir, model.EntityOrganizations)
	if filepath.Base(path) != "organizations.json" {
		t.Fatalf("ArtifactPath() = %q", path)
	}

	want := model.Artifact[model.Organization]{
		Data:   []model.Organization{{Name: "Acme", Type: "customer", Addresses: []model.Address{}, Tags: []string{"key"}}},
		Errors: []model.TransformError{{Row: 3, Field: "name", Message: "organization name is required", Severity: model.SeverityError}},
		Stats:  model.Stats{TotalRows: 2, SuccessfulRows: 1, ErrorRows: 1, FieldsTransformed: map[string]int{"name": 1}},
	}
	if err := WriteArtifact(path, want); err != nil {
		t.Fatalf("WriteArtifact() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.HasSuffix(text, "}\n") || !strings.Contains(text, "\n  \"data\": [") {
		t.Errorf("artifact is not indented JSON with a trailing newline:\n%s", text)
	}

	got, err := ReadArtifact[model.Organization](path)
	if err != nil {
		t.Fatalf("ReadArtifact() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadArtifact() = %+v, want %+v", got, want)
	}
}

func TestWriteArtifact_EmptyKeepsShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.json")
	if err := WriteArtifact(path, model.Artifact[model.Activity]{}); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)
	for _, key := range []string{`"data": []`, `"errors": []`, `"fieldsTransformed": {}`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("empty artifact missing %s:\n%s", key, raw)
		}
	}
}

func TestReadArtifact_Errors(t *testing.T) {
	if _, err := ReadArtifact[model.Contact](filepath.Join(t.TempDir(), "missing.json")); err == nil || !strings.Contains(err.Error(), "failed to read artifact") {
		t.Errorf("missing file error = %v", err)
	}
	bad := createTempFile(t, `{"data": {"not": "a list"}}`, "bad_*.json")
	if _, err := ReadArtifact[model.Contact](bad); err == nil || !strings.Contains(err.Error(), "failed to unmarshal") {
		t.Errorf("bad file error = %v", err)
	}
}
