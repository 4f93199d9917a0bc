package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvOverrides are the settings read from the process environment. They take
// precedence over the YAML file and are overridden by command-line flags.
type EnvOverrides struct {
	DBCredentials string `env:"DB_CREDENTIALS"`
	ActorID       string `env:"CRM_MIGRATE_ACTOR_ID"`
	LogLevel      string `env:"CRM_MIGRATE_LOG_LEVEL"`
	OutputDir     string `env:"CRM_MIGRATE_OUTPUT_DIR"`
	StoreType     string `env:"CRM_MIGRATE_STORE"`
	BatchSize     int    `env:"CRM_MIGRATE_BATCH_SIZE"`
}

// Default returns a configuration with every default applied and no inputs.
func Default() *MigrateConfig {
	cfg := &MigrateConfig{}
	ApplyDefaults(cfg)
	return cfg
}

// LoadConfig reads and parses the YAML configuration file and applies defaults.
// Validation is left to ValidateConfig so environment and flag overrides can be
// layered on first.
func LoadConfig(filename string) (*MigrateConfig, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	var config MigrateConfig
	if err := yaml.Unmarshal(fileBytes, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", filename, err)
	}

	ApplyDefaults(&config)
	return &config, nil
}

// LoadEnvFiles loads the given dotenv files that exist, without overriding
// variables already set in the environment. It returns how many were loaded.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("failed to load env files %v: %w", existing, err)
	}
	return len(existing), nil
}

// ReadEnv parses EnvOverrides from the environment.
func ReadEnv() (EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return overrides, fmt.Errorf("failed to parse environment: %w", err)
	}
	return overrides, nil
}

// ApplyEnv copies every non-empty override into cfg.
func ApplyEnv(cfg *MigrateConfig, o EnvOverrides) {
	if o.DBCredentials != "" {
		cfg.Store.DSN = o.DBCredentials
	}
	if o.ActorID != "" {
		cfg.Load.ActorID = o.ActorID
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.OutputDir != "" {
		cfg.OutputDir = o.OutputDir
	}
	if o.StoreType != "" {
		cfg.Store.Type = o.StoreType
	}
	if o.BatchSize > 0 {
		cfg.Load.BatchSize = o.BatchSize
	}
}

// ApplyDefaults sets default values for unset fields. It is safe to call more than once.
func ApplyDefaults(cfg *MigrateConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Load.BatchSize <= 0 {
		cfg.Load.BatchSize = DefaultBatchSize
	}
	if cfg.Load.ActorID == "" {
		cfg.Load.ActorID = DefaultActorID
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreTypeFile
	}
	if cfg.Store.Type == StoreTypeFile && cfg.Store.Dir == "" {
		cfg.Store.Dir = DefaultStoreDir
	}
	if cfg.Store.Timeout == "" {
		cfg.Store.Timeout = DefaultStoreTimeout
	}
	if cfg.Report.PreviewLimit <= 0 {
		cfg.Report.PreviewLimit = DefaultPreviewLimit
	}
	for _, src := range []*SourceConfig{&cfg.Inputs.Contacts, &cfg.Inputs.Organizations, &cfg.Inputs.Activities} {
		applySourceDefaults(src)
	}
}

// applySourceDefaults infers the type from the file extension and sets format defaults.
func applySourceDefaults(src *SourceConfig) {
	if src.File == "" {
		return
	}
	if src.Type == "" {
		src.Type = InferSourceType(src.File)
	}
	if src.HeaderRows <= 0 {
		src.HeaderRows = DefaultHeaderRows
	}
	if strings.EqualFold(src.Type, SourceTypeCSV) && src.Delimiter == "" {
		src.Delimiter = DefaultCSVDelimiter
		if strings.EqualFold(filepath.Ext(src.File), ".tsv") {
			src.Delimiter = "\t"
		}
	}
}

// InferSourceType maps a file extension to a source type. Unknown extensions
// (including .txt and .tsv exports) are read as delimited text.
func InferSourceType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return SourceTypeXLSX
	default:
		return SourceTypeCSV
	}
}
