package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/cognicore/refmatch/pkg/refmatch/internalerr"
)

// ReadCSV parses CSV with a header line. UTF-8 input may start with a BOM.
// Short lines leave their trailing columns absent from the Row; extra
// fields are dropped.
func ReadCSV(r io.Reader, enc string) (*Table, error) {
	cr, err := newCSVReader(r, enc)
	if err != nil {
		return nil, err
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header line", internalerr.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return buildTable(header, records)
}

// ReadFile reads a CSV file, or the first sheet of an .xlsx workbook.
func ReadFile(path, enc string) (*Table, error) {
	if isXLSX(path) {
		records, err := readSheet(path)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %s: empty sheet", internalerr.ErrInvalidInput, path)
		}
		t, err := buildTable(records[0], records[1:])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return t, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Columns returns the header of a file without reading its records.
func Columns(path, enc string) ([]string, error) {
	if isXLSX(path) {
		records, err := readSheet(path)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %s: empty sheet", internalerr.ErrInvalidInput, path)
		}
		return records[0], nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr, err := newCSVReader(f, enc)
	if err != nil {
		return nil, err
	}
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: no header line", internalerr.ErrInvalidInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	return header, nil
}

// Validate checks that path exists and has at least one named column.
func Validate(path, enc string) error {
	if path == "" {
		return fmt.Errorf("%w: no file selected", internalerr.ErrInvalidInput)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidInput, path, err)
	}
	cols, err := Columns(path, enc)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if c != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: no columns", internalerr.ErrInvalidInput, path)
}

func newCSVReader(r io.Reader, enc string) (*csv.Reader, error) {
	e, err := LookupEncoding(enc)
	if err != nil {
		return nil, err
	}
	dec := e.NewDecoder()
	if e == unicode.UTF8 {
		dec = unicode.UTF8BOM.NewDecoder()
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr, nil
}

func readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func buildTable(header []string, records [][]string) (*Table, error) {
	named := false
	for _, h := range header {
		if h != "" {
			named = true
			break
		}
	}
	if !named {
		return nil, fmt.Errorf("%w: no columns", internalerr.ErrInvalidInput)
	}

	t := &Table{Header: header, Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
