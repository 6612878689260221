package sink

import (
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/donlluque/api-etl/pkg/record"
)

// ExcelSink writes records to an XLSX workbook with a header row on
// the default sheet.
type ExcelSink struct {
	path string
}

// Write serializes the records. Numbers and booleans are written as
// native cell values; nested objects and arrays as compact JSON text.
func (s *ExcelSink) Write(records []record.Record) error {
	cols, err := columns(records)
	if err != nil {
		return err
	}

	if err := ensureDir(s.path); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for j, col := range cols {
		cellName, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cellName, col); err != nil {
			return fmt.Errorf("write header %q: %w", col, err)
		}
	}

	for i, rec := range records {
		for j, col := range cols {
			v, ok := rec.Get(col)
			if !ok || v == nil {
				continue
			}

			cellName, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cellName, excelValue(v)); err != nil {
				return fmt.Errorf("record %d, column %q: %w", i, col, err)
			}
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// excelValue converts a record value into a native spreadsheet value.
func excelValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if fl, err := t.Float64(); err == nil {
			return fl
		}
		return t.String()
	case string, bool:
		return t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
