package sink

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/donlluque/api-etl/pkg/record"
)

// CSVSink writes records to a CSV file with a header row.
type CSVSink struct {
	path string
}

// Write serializes the records. The header is the union of field
// names in first-seen order; missing fields render as empty cells.
func (s *CSVSink) Write(records []record.Record) error {
	cols, err := columns(records)
	if err != nil {
		return err
	}

	if err := ensureDir(s.path); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(cols))
	for i, rec := range records {
		for j, col := range cols {
			v, _ := rec.Get(col)
			cellValue, err := cell(v)
			if err != nil {
				return fmt.Errorf("record %d, column %q: %w", i, col, err)
			}
			row[j] = cellValue
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}
