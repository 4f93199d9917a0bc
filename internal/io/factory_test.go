package io

import (
	"strings"
	"testing"

	"crm-migrate/internal/config"
)

func TestNewInputReader(t *testing.T) {
	sheetIndex := 2
	testCases := []struct {
		name       string
		cfg        config.SourceConfig
		wantType   string
		wantErrMsg string
	}{
		{name: "CSV", cfg: config.SourceConfig{Type: "csv", Delimiter: ";"}, wantType: "*io.CSVReader"},
		{name: "CSV uppercase", cfg: config.SourceConfig{Type: "CSV"}, wantType: "*io.CSVReader"},
		{name: "XLSX", cfg: config.SourceConfig{Type: "xlsx", SheetIndex: &sheetIndex}, wantType: "*io.XLSXReader"},
		{name: "Inferred XLSX", cfg: config.SourceConfig{File: "accounts.xlsx"}, wantType: "*io.XLSXReader"},
		{name: "Inferred CSV", cfg: config.SourceConfig{File: "contacts.txt"}, wantType: "*io.CSVReader"},
		{name: "Bad CSV delimiter", cfg: config.SourceConfig{Type: "csv", Delimiter: "||"}, wantErrMsg: "failed to create CSV reader"},
		{name: "Unsupported", cfg: config.SourceConfig{Type: "parquet"}, wantErrMsg: "unsupported source type 'parquet'"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reader, err := NewInputReader(tc.cfg)
			if tc.wantErrMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErrMsg) {
					t.Fatalf("NewInputReader() error = %v, want %q", err, tc.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewInputReader() unexpected error: %v", err)
			}
			if got := typeName(reader); got != tc.wantType {
				t.Errorf("reader type = %s, want %s", got, tc.wantType)
			}
		})
	}

	reader, _ := NewInputReader(config.SourceConfig{Type: "csv", Delimiter: ";", CommentChar: "#"})
	if csvReader := reader.(*CSVReader); csvReader.Delimiter != ';' || csvReader.CommentChar != '#' {
		t.Errorf("CSV options not applied: %+v", csvReader)
	}
	reader, _ = NewInputReader(config.SourceConfig{Type: "xlsx", SheetName: "Accounts", SheetIndex: &sheetIndex})
	if x := reader.(*XLSXReader); x.sheetName != "Accounts" || x.sheetIndex != &sheetIndex {
		t.Errorf("XLSX options not applied: %+v", x)
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *CSVReader:
		return "*io.CSVReader"
	case *XLSXReader:
		return "*io.XLSXReader"
	default:
		return "unknown"
	}
}
