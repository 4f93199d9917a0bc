package io

import (
	"fmt"
	"strings"

	"crm-migrate/internal/config"
	"crm-migrate/internal/logging"
)

// NewInputReader creates and returns an appropriate InputReader based on the
// source configuration. An empty type is inferred from the file extension.
func NewInputReader(cfg config.SourceConfig) (InputReader, error) {
	sourceType := strings.ToLower(cfg.Type)
	if sourceType == "" {
		sourceType = config.InferSourceType(cfg.File)
	}
	logging.Logf(logging.Debug, "Creating input reader for type: %s", sourceType)

	switch sourceType {
	case config.SourceTypeCSV:
		reader, err := NewCSVReader(cfg.Delimiter, cfg.CommentChar)
		if err != nil {
			return nil, fmt.Errorf("failed to create CSV reader: %w", err)
		}
		return reader, nil
	case config.SourceTypeXLSX:
		return NewXLSXReader(cfg.SheetName, cfg.SheetIndex), nil
	default:
		return nil, fmt.Errorf("unsupported source type '%s'", cfg.Type)
	}
}
