package io

import (
	"fmt"

	"crm-migrate/internal/logging"
	"crm-migrate/internal/model"

	"github.com/xuri/excelize/v2"
)

// XLSXReader implements the InputReader interface for Excel (.xlsx) exports.
type XLSXReader struct {
	sheetName  string
	sheetIndex *int
}

// NewXLSXReader creates a new XLSXReader with sheet preferences.
func NewXLSXReader(sheetName string, sheetIndex *int) *XLSXReader {
	return &XLSXReader{
		sheetName:  sheetName,
		sheetIndex: sheetIndex,
	}
}

// Read loads the rows of the selected sheet: by name, else by index, else the active sheet.
// Cell values are read as Excel displays them.
func (xr *XLSXReader) Read(filePath string) ([]model.RawRecord, error) {
	logging.Logf(logging.Debug, "XLSXReader reading file: %s (SheetName: '%s', SheetIndex: %v)", filePath, xr.sheetName, xr.sheetIndex)

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("XLSXReader failed to open file '%s': %w", filePath, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Logf(logging.Error, "XLSXReader failed to close file '%s': %v", filePath, err)
		}
	}()

	targetSheetName, err := xr.selectSheet(f, filePath)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(targetSheetName)
	if err != nil {
		return nil, fmt.Errorf("XLSXReader failed to get rows from sheet '%s' in '%s': %w", targetSheetName, filePath, err)
	}

	records := make([]model.RawRecord, 0)
	if len(rows) < 1 {
		logging.Logf(logging.Warning, "XLSX sheet '%s' in '%s' is empty or contains no header row.", targetSheetName, filePath)
		return records, nil
	}

	source := fmt.Sprintf("sheet '%s' of %s", targetSheetName, filePath)
	headers, ok := cleanHeaders(rows[0], source)
	if !ok {
		return records, nil
	}
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			logging.Logf(logging.Debug, "XLSXReader: skipping blank row %d in %s", i+2, source)
			continue
		}
		records = append(records, buildRecord(headers, row))
	}

	logging.Logf(logging.Info, "XLSXReader successfully loaded %d records from %s", len(records), source)
	return records, nil
}

// selectSheet resolves the sheet to read.
func (xr *XLSXReader) selectSheet(f *excelize.File, filePath string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("XLSXReader: file '%s' contains no sheets", filePath)
	}

	if xr.sheetName != "" {
		for _, name := range sheets {
			if name == xr.sheetName {
				logging.Logf(logging.Debug, "XLSXReader: Using specified sheet name '%s'", name)
				return name, nil
			}
		}
		return "", fmt.Errorf("XLSXReader: specified sheet name '%s' not found in '%s'", xr.sheetName, filePath)
	}

	if xr.sheetIndex != nil {
		if *xr.sheetIndex < 0 || *xr.sheetIndex >= len(sheets) {
			return "", fmt.Errorf("XLSXReader: specified sheet index %d is out of bounds (0 to %d) in '%s'", *xr.sheetIndex, len(sheets)-1, filePath)
		}
		name := sheets[*xr.sheetIndex]
		logging.Logf(logging.Debug, "XLSXReader: Using specified sheet index %d ('%s')", *xr.sheetIndex, name)
		return name, nil
	}

	if name := f.GetSheetName(f.GetActiveSheetIndex()); name != "" {
		logging.Logf(logging.Debug, "XLSXReader: Using active sheet '%s' as default", name)
		return name, nil
	}
	logging.Logf(logging.Debug, "XLSXReader: Using first sheet '%s' as default", sheets[0])
	return sheets[0], nil
}
