package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	crmio "crm-migrate/internal/io"
	"crm-migrate/internal/logging"
	"crm-migrate/internal/model"
	"crm-migrate/internal/pipeline"
)

const contactsCSV = `First Name,Last Name,Email,Phone
Jane,Doe,JANE@EXAMPLE.COM,(512) 555-0100
John,Smith,john@example.com,512-555-0101
`

type mockReportWriter struct {
	mu     sync.Mutex
	diags  []model.Diagnostic
	closed int
}

func (m *mockReportWriter) Write(d model.Diagnostic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diags = append(m.diags, d)
	return nil
}

func (m *mockReportWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// testEnv is a temp workspace with a contacts export and a config file
// pointing the output and the file store into it.
type testEnv struct {
	dir        string
	contacts   string
	outputDir  string
	storeDir   string
	configFile string
}

var setupMu sync.Mutex

func setupTestEnv(t *testing.T, extraYAML string) *testEnv {
	t.Helper()
	setupMu.Lock()
	origEnvFiles := loadEnvFilesFunc
	origLevel := logging.GetLevel()
	loadEnvFilesFunc = func(...string) (int, error) { return 0, nil }
	logging.SetOutput(io.Discard)
	for _, name := range []string{"DB_CREDENTIALS", "CRM_MIGRATE_ACTOR_ID", "CRM_MIGRATE_LOG_LEVEL", "CRM_MIGRATE_OUTPUT_DIR", "CRM_MIGRATE_STORE", "CRM_MIGRATE_BATCH_SIZE"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Cleanup(func() {
		loadEnvFilesFunc = origEnvFiles
		logging.SetOutput(os.Stderr)
		logging.SetLevel(origLevel)
		setupMu.Unlock()
	})

	dir := t.TempDir()
	env := &testEnv{
		dir:       dir,
		contacts:  filepath.Join(dir, "contacts.csv"),
		outputDir: filepath.Join(dir, "out"),
		storeDir:  filepath.Join(dir, "store"),
	}
	if err := os.WriteFile(env.contacts, []byte(contactsCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	yaml := fmt.Sprintf("outputDir: %q\nstore:\n  type: file\n  dir: %q\n%s", env.outputDir, env.storeDir, extraYAML)
	env.configFile = filepath.Join(dir, "migrate.yaml")
	if err := os.WriteFile(env.configFile, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

// storedContacts reads the contacts collection of the file store.
func (e *testEnv) storedContacts(t *testing.T) []map[string]interface{} {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(e.storeDir, "contacts.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var docs []map[string]interface{}
	if err := json.Unmarshal(raw, &docs); err != nil {
		t.Fatal(err)
	}
	return docs
}

func newTestRunner() (*AppRunner, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &AppRunner{out: buf}, buf
}

func TestAppRunner_Usage(t *testing.T) {
	runner, _ := newTestRunner()
	var buf bytes.Buffer
	runner.Usage(&buf)
	got := buf.String()
	for _, want := range []string{"Usage:", "crm-migrate [command]", "run", "transform", "validate", "load", "--dry-run", "--skip-validation"} {
		if !strings.Contains(got, want) {
			t.Errorf("usage missing %q:\n%s", want, got)
		}
	}
}

func TestAppRunner_Run_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {}} {
		runner, out := newTestRunner()
		if err := runner.Run(context.Background(), args); err != nil {
			t.Errorf("Run(%v) error = %v", args, err)
		}
		if !strings.Contains(out.String(), "Available Commands") {
			t.Errorf("Run(%v) printed no help:\n%s", args, out.String())
		}
	}
}

func TestAppRunner_Run_UsageErrors(t *testing.T) {
	env := setupTestEnv(t, "")
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"run", "--invalid-flag"}},
		{"unknown command", []string{"migrate"}},
		{"positional argument", []string{"run", env.contacts}},
		{"bad flag value", []string{"run", "--batch-size", "many"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner, _ := newTestRunner()
			err := runner.Run(context.Background(), tc.args)
			if !errors.Is(err, ErrUsage) {
				t.Errorf("Run(%v) error = %v, want ErrUsage", tc.args, err)
			}
		})
	}
}

func TestAppRunner_Run_ConfigNotFound(t *testing.T) {
	env := setupTestEnv(t, "")
	runner, _ := newTestRunner()
	err := runner.Run(context.Background(), []string{"run", "--config", filepath.Join(env.dir, "non-existent.yaml")})
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Run() error = %v, want ErrConfigNotFound", err)
	}
}

func TestAppRunner_Run_InvalidConfig(t *testing.T) {
	t.Run("InvalidYAML", func(t *testing.T) {
		env := setupTestEnv(t, "logging: { level:")
		runner, _ := newTestRunner()
		err := runner.Run(context.Background(), []string{"run", "--config", env.configFile})
		if err == nil || !strings.Contains(err.Error(), "YAML") {
			t.Errorf("expected YAML error, got: %v", err)
		}
	})
	t.Run("InvalidSchema", func(t *testing.T) {
		env := setupTestEnv(t, "load: { batchSize: 10 }\ninputs:\n  contacts: { file: c.csv, delimiter: ';;' }\n")
		runner, _ := newTestRunner()
		err := runner.Run(context.Background(), []string{"run", "--config", env.configFile})
		if err == nil || !strings.Contains(err.Error(), "validation failed") || !strings.Contains(err.Error(), "Config.Inputs.Contacts.Delimiter") {
			t.Errorf("expected delimiter validation error, got: %v", err)
		}
	})
}

func TestAppRunner_Run_NoInputs(t *testing.T) {
	env := setupTestEnv(t, "")
	runner, _ := newTestRunner()
	err := runner.Run(context.Background(), []string{"run", "--config", env.configFile})
	if !errors.Is(err, pipeline.ErrNoInputs) {
		t.Errorf("Run() error = %v, want ErrNoInputs", err)
	}
}

func TestAppRunner_Run_HappyPath(t *testing.T) {
	env := setupTestEnv(t, "")
	metricsFile := filepath.Join(env.dir, "metrics", "crm_migrate.prom")
	if err := os.MkdirAll(filepath.Dir(metricsFile), 0o755); err != nil {
		t.Fatal(err)
	}
	reportFile := filepath.Join(env.dir, "diagnostics.csv")
	runner, out := newTestRunner()

	err := runner.Run(context.Background(), []string{
		"run", "--config", env.configFile, "--contacts", env.contacts,
		"--report", reportFile, "--metrics-file", metricsFile, "--batch-size", "1",
	})
	if err != nil {
		t.Fatalf("Run() error = %v\n%s", err, out.String())
	}
	if docs := env.storedContacts(t); len(docs) != 2 {
		t.Errorf("stored contacts = %d, want 2", len(docs))
	}
	if !strings.Contains(out.String(), "load: 2 inserted, 0 failed") || !strings.Contains(out.String(), "Result: OK") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}
	if _, err := os.Stat(crmio.ArtifactPath(env.outputDir, model.EntityContacts)); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
	metrics, err := os.ReadFile(metricsFile)
	if err != nil || !strings.Contains(string(metrics), `crm_migrate_load_records_total{entity="contacts",outcome="inserted"`) {
		t.Errorf("metrics file = %q, %v", metrics, err)
	}
	if _, err := os.Stat(reportFile); err != nil {
		t.Errorf("report file missing: %v", err)
	}
}

func TestAppRunner_Run_DryRun(t *testing.T) {
	env := setupTestEnv(t, "")
	report := &mockReportWriter{}
	orig := newReportWriterFunc
	newReportWriterFunc = func(string) (crmio.ReportWriter, error) { return report, nil }
	t.Cleanup(func() { newReportWriterFunc = orig })

	runner, out := newTestRunner()
	err := runner.Run(context.Background(), []string{"run", "--config", env.configFile, "--contacts", env.contacts, "--dry-run", "--report", "r.csv"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if docs := env.storedContacts(t); docs != nil {
		t.Errorf("dry run stored %d contacts", len(docs))
	}
	if !strings.Contains(out.String(), "Load skipped: dry run.") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}
	if report.closed != 1 {
		t.Errorf("report closed %d times, want 1", report.closed)
	}
}

func TestAppRunner_Run_ValidationFailure(t *testing.T) {
	env := setupTestEnv(t, "")
	bad := filepath.Join(env.dir, "geo.csv")
	if err := os.WriteFile(bad, []byte("First Name,Last Name,Latitude\nJane,Doe,200\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner, out := newTestRunner()
	err := runner.Run(context.Background(), []string{"run", "--config", env.configFile, "--contacts", bad})
	if !errors.Is(err, pipeline.ErrPipelineFailed) {
		t.Fatalf("Run() error = %v, want ErrPipelineFailed", err)
	}
	if env.storedContacts(t) != nil {
		t.Error("contacts loaded despite validation errors")
	}
	if !strings.Contains(out.String(), "Load skipped: validation failed.") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}

	// Skipping validation lets the same batch through.
	runner, _ = newTestRunner()
	if err := runner.Run(context.Background(), []string{"load", "--config", env.configFile, "--skip-validation"}); err != nil {
		t.Fatalf("load --skip-validation error = %v", err)
	}
	if docs := env.storedContacts(t); len(docs) != 1 {
		t.Errorf("stored contacts = %d, want 1", len(docs))
	}
}

func TestAppRunner_Run_Precedence(t *testing.T) {
	testCases := []struct {
		name      string
		envActor  string
		flagActor string
		want      string
	}{
		{name: "config file", want: "yaml-actor"},
		{name: "environment over file", envActor: "env-actor", want: "env-actor"},
		{name: "flag over environment", envActor: "env-actor", flagActor: "flag-actor", want: "flag-actor"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestEnv(t, "load:\n  actorId: yaml-actor\n")
			if tc.envActor != "" {
				t.Setenv("CRM_MIGRATE_ACTOR_ID", tc.envActor)
			}
			args := []string{"run", "--config", env.configFile, "--contacts", env.contacts}
			if tc.flagActor != "" {
				args = append(args, "--actor", tc.flagActor)
			}
			runner, _ := newTestRunner()
			if err := runner.Run(context.Background(), args); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			docs := env.storedContacts(t)
			if len(docs) == 0 {
				t.Fatal("no contacts stored")
			}
			for _, d := range docs {
				if d["created_by"] != tc.want {
					t.Errorf("created_by = %v, want %q", d["created_by"], tc.want)
				}
			}
		})
	}
}

func TestAppRunner_Run_EnvVarExpansion(t *testing.T) {
	env := setupTestEnv(t, "inputs:\n  contacts:\n    file: \"$LEGACY_DIR/contacts.csv\"\n")
	t.Setenv("LEGACY_DIR", env.dir)
	runner, _ := newTestRunner()
	if err := runner.Run(context.Background(), []string{"transform", "--config", env.configFile}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	art, err := crmio.ReadArtifact[model.Contact](crmio.ArtifactPath(env.outputDir, model.EntityContacts))
	if err != nil {
		t.Fatal(err)
	}
	if len(art.Data) != 2 {
		t.Errorf("artifact records = %d, want 2", len(art.Data))
	}
}
