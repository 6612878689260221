// Package sink writes collected records to tabular output files.
// The output format is selected by the destination's file extension.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/donlluque/api-etl/pkg/record"
)

// Sink serializes an ordered sequence of records to a destination.
type Sink interface {
	Write(records []record.Record) error
}

// UnsupportedFormatError indicates an output path with an extension no
// sink can handle. This is a configuration-time error.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported output format %q: expected .csv, .xlsx or .xls", filepath.Ext(e.Path))
}

// New returns the sink for the given output path, dispatching on the
// file extension.
func New(path string) (Sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return &CSVSink{path: path}, nil
	case ".xlsx", ".xls":
		return &ExcelSink{path: path}, nil
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
}

// columns computes the output column order: the union of field names
// across all records, in first-seen order. Scalar-form records (from
// non-object array elements) are rejected here.
func columns(records []record.Record) ([]string, error) {
	seen := make(map[string]bool)
	var cols []string

	for i, rec := range records {
		if rec.IsScalar() {
			return nil, fmt.Errorf("record %d is not an object (got %v)", i, rec.ScalarValue())
		}
		for _, key := range rec.Keys() {
			if !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
		}
	}
	return cols, nil
}

// cell renders one field value for tabular output. Absent fields and
// explicit nulls render empty; nested objects and arrays render as
// compact JSON.
func cell(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("render cell: %w", err)
		}
		return string(b), nil
	}
}

// ensureDir creates the destination's parent directory if needed.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
