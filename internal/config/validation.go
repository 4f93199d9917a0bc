package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"crm-migrate/internal/logging"

	"github.com/Knetic/govaluate"
)

// Define known valid enum values for configuration fields.
var (
	knownLogLevels   = []string{"none", "error", "warn", "warning", "info", "debug"}
	knownSourceTypes = []string{SourceTypeCSV, SourceTypeXLSX}
	knownStoreTypes  = []string{StoreTypePostgres, StoreTypeFile}
	knownCollections = []string{"contacts", "organizations", "activities"}
)

// isValidEnumValue checks if a value is present in a list of allowed string values (case-insensitive).
func isValidEnumValue(value string, allowedValues []string) bool {
	lowerValue := strings.ToLower(value)
	for _, allowed := range allowedValues {
		if lowerValue == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// ValidateConfig performs comprehensive validation of the migration configuration.
// All problems are reported together, one "- Config.X: message" line each.
func ValidateConfig(cfg *MigrateConfig) error {
	var allErrors []string

	if !isValidEnumValue(cfg.Logging.Level, knownLogLevels) {
		allErrors = append(allErrors, fmt.Sprintf("- Config.Logging.Level: invalid log level '%s', must be one of %v", cfg.Logging.Level, knownLogLevels))
	}

	allErrors = append(allErrors, validateSourceConfig("Config.Inputs.Contacts", &cfg.Inputs.Contacts)...)
	allErrors = append(allErrors, validateSourceConfig("Config.Inputs.Organizations", &cfg.Inputs.Organizations)...)
	allErrors = append(allErrors, validateSourceConfig("Config.Inputs.Activities", &cfg.Inputs.Activities)...)

	if strings.TrimSpace(cfg.OutputDir) == "" {
		allErrors = append(allErrors, "- Config.OutputDir: is required")
	}

	if cfg.Load.BatchSize <= 0 {
		allErrors = append(allErrors, fmt.Sprintf("- Config.Load.BatchSize: must be positive, got %d", cfg.Load.BatchSize))
	}
	if strings.TrimSpace(cfg.Load.ActorID) == "" {
		allErrors = append(allErrors, "- Config.Load.ActorID: is required")
	}

	allErrors = append(allErrors, validateStoreConfig("Config.Store", &cfg.Store)...)

	if cfg.Report.PreviewLimit < 0 {
		allErrors = append(allErrors, "- Config.Report.PreviewLimit: cannot be negative")
	}

	if len(allErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(allErrors, "\n"))
	}
	logging.Logf(logging.Debug, "Configuration validation successful.")
	return nil
}

// validateSourceConfig validates one entity input. An input without a file is
// simply not part of the run.
func validateSourceConfig(prefix string, cfg *SourceConfig) []string {
	var errs []string
	if cfg.File == "" {
		if cfg.Filter != "" || cfg.Type != "" {
			logging.Logf(logging.Warning, "Validation: %s has options but no file; it will be skipped", prefix)
		}
		return errs
	}
	if !isValidEnumValue(cfg.Type, knownSourceTypes) {
		errs = append(errs, fmt.Sprintf("- %s.Type: invalid source type '%s', must be one of %v", prefix, cfg.Type, knownSourceTypes))
		return errs // Stop further source validation if type is invalid
	}
	if cfg.HeaderRows < 0 {
		errs = append(errs, fmt.Sprintf("- %s.HeaderRows: cannot be negative", prefix))
	}
	if cfg.Filter != "" {
		if _, err := govaluate.NewEvaluableExpression(cfg.Filter); err != nil {
			errs = append(errs, fmt.Sprintf("- %s.Filter: invalid expression syntax: %v", prefix, err))
		}
	}

	switch strings.ToLower(cfg.Type) {
	case SourceTypeCSV:
		if err := validateSingleRuneString(cfg.Delimiter, fmt.Sprintf("%s.Delimiter", prefix), false); err != nil {
			errs = append(errs, err.Error())
		}
		if err := validateSingleRuneString(cfg.CommentChar, fmt.Sprintf("%s.CommentChar", prefix), true); err != nil {
			errs = append(errs, err.Error())
		}
		if cfg.CommentChar != "" && cfg.CommentChar == cfg.Delimiter {
			errs = append(errs, fmt.Sprintf("- %s.CommentChar: cannot equal the delimiter", prefix))
		}
	case SourceTypeXLSX:
		if cfg.SheetName != "" {
			if err := validateSheetName(cfg.SheetName, fmt.Sprintf("%s.SheetName", prefix)); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if cfg.SheetIndex != nil && *cfg.SheetIndex < 0 {
			errs = append(errs, fmt.Sprintf("- %s.SheetIndex: cannot be negative", prefix))
		}
		if cfg.SheetName != "" && cfg.SheetIndex != nil {
			logging.Logf(logging.Warning, "Validation: Both %s.SheetName ('%s') and %s.SheetIndex (%d) are specified. SheetName will be used.", prefix, cfg.SheetName, prefix, *cfg.SheetIndex)
		}
	}

	validateUnusedFormatOptions(prefix, cfg.Type, cfg)
	return errs
}

// validateStoreConfig validates the target store section.
func validateStoreConfig(prefix string, cfg *StoreConfig) []string {
	var errs []string
	if !isValidEnumValue(cfg.Type, knownStoreTypes) {
		errs = append(errs, fmt.Sprintf("- %s.Type: invalid store type '%s', must be one of %v", prefix, cfg.Type, knownStoreTypes))
		return errs
	}
	switch strings.ToLower(cfg.Type) {
	case StoreTypePostgres:
		if cfg.DSN == "" {
			errs = append(errs, fmt.Sprintf("- %s.DSN: is required for store type 'postgres' (use -db or DB_CREDENTIALS)", prefix))
		}
		if cfg.Dir != "" {
			logging.Logf(logging.Warning, "Validation: %s.Dir is specified but will be ignored for store type 'postgres'", prefix)
		}
	case StoreTypeFile:
		if cfg.Dir == "" {
			errs = append(errs, fmt.Sprintf("- %s.Dir: is required for store type 'file'", prefix))
		}
		if len(cfg.Tables) > 0 {
			logging.Logf(logging.Warning, "Validation: %s.Tables is specified but will be ignored for store type 'file'", prefix)
		}
	}

	collections := make([]string, 0, len(cfg.Tables))
	for c := range cfg.Tables {
		collections = append(collections, c)
	}
	sort.Strings(collections) // Stable error order
	for _, c := range collections {
		if !isValidEnumValue(c, knownCollections) {
			errs = append(errs, fmt.Sprintf("- %s.Tables: unknown collection '%s', must be one of %v", prefix, c, knownCollections))
		} else if strings.TrimSpace(cfg.Tables[c]) == "" {
			errs = append(errs, fmt.Sprintf("- %s.Tables[%s]: table name cannot be empty", prefix, c))
		}
	}

	if d, err := time.ParseDuration(cfg.Timeout); err != nil {
		errs = append(errs, fmt.Sprintf("- %s.Timeout: invalid duration '%s': %v", prefix, cfg.Timeout, err))
	} else if d <= 0 {
		errs = append(errs, fmt.Sprintf("- %s.Timeout: must be positive", prefix))
	}
	return errs
}

// validateSingleRuneString checks if a string contains exactly one UTF-8 rune.
func validateSingleRuneString(s, fieldName string, allowEmpty bool) error {
	if s == "" {
		if !allowEmpty {
			return fmt.Errorf("- %s: cannot be empty", fieldName)
		}
		return nil // Empty is allowed
	}
	if utf8.RuneCountInString(s) != 1 {
		return fmt.Errorf("- %s: %s must be a single character", fieldName, strconv.Quote(s))
	}
	return nil
}

// validateSheetName checks if an Excel sheet name is valid according to Excel limitations.
func validateSheetName(sheetName, fieldName string) error {
	if sheetName == "" {
		return fmt.Errorf("- %s: sheet name cannot be empty", fieldName)
	}
	if utf8.RuneCountInString(sheetName) > 31 {
		return fmt.Errorf("- %s: '%s' exceeds maximum length of 31 characters", fieldName, sheetName)
	}
	if strings.ContainsAny(sheetName, `:\/?*[]`) {
		return fmt.Errorf("- %s: '%s' contains invalid characters (: \\ / ? * [ ])", fieldName, sheetName)
	}
	if strings.HasPrefix(sheetName, "'") || strings.HasSuffix(sheetName, "'") {
		return fmt.Errorf("- %s: '%s' cannot start or end with a single quote", fieldName, sheetName)
	}
	return nil
}

// validateUnusedFormatOptions logs warnings if format-specific options are present for the wrong type.
func validateUnusedFormatOptions(prefix, actualType string, cfg *SourceConfig) {
	lcActualType := strings.ToLower(actualType)
	v := reflect.ValueOf(cfg).Elem()

	if lcActualType != SourceTypeCSV {
		for _, name := range []string{"Delimiter", "CommentChar"} {
			if isFieldSet(v, name) {
				logging.Logf(logging.Warning, "Validation: %s.%s is specified but will be ignored for type '%s'", prefix, name, actualType)
			}
		}
	}
	if lcActualType != SourceTypeXLSX {
		for _, name := range []string{"SheetName", "SheetIndex"} {
			if isFieldSet(v, name) {
				logging.Logf(logging.Warning, "Validation: %s.%s is specified but will be ignored for type '%s'", prefix, name, actualType)
			}
		}
	}
}

// isFieldSet checks if a field in a struct has a non-zero/non-empty value.
func isFieldSet(v reflect.Value, fieldName string) bool {
	field := v.FieldByName(fieldName)
	if !field.IsValid() {
		return false // Field doesn't exist
	}
	return !field.IsZero()
}
