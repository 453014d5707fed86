// Package dataset holds the tabular data a model is fitted on: named
// float64 columns with a stable column order.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Table is a column-ordered tabular dataset.
type Table struct {
	names   []string
	columns map[string][]float64
	rows    int
}

// New creates a table from ordered columns. Every column must have the
// same length.
func New(names []string, columns map[string][]float64) (*Table, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("table needs at least one column")
	}
	rows := -1
	for _, name := range names {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q missing from data", name)
		}
		if rows == -1 {
			rows = len(col)
		} else if len(col) != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(col), rows)
		}
	}
	return &Table{names: names, columns: columns, rows: rows}, nil
}

// FromColumns builds a table preserving the given column order, with
// one series per name.
func FromColumns(names []string, series ...[]float64) (*Table, error) {
	if len(names) != len(series) {
		return nil, fmt.Errorf("got %d names for %d series", len(names), len(series))
	}
	columns := make(map[string][]float64, len(names))
	for i, name := range names {
		columns[name] = series[i]
	}
	return New(names, columns)
}

// LoadCSV reads a headered CSV file into a table. Every cell must parse
// as a float.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses headered CSV content into a table.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	columns := make(map[string][]float64, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		for i, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("column %q: parsing %q: %w", header[i], cell, err)
			}
			columns[header[i]] = append(columns[header[i]], v)
		}
	}
	return New(header, columns)
}

// Names returns the column names in order.
func (t *Table) Names() []string { return t.names }

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Column returns the series for a column name.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.columns[name]
	return col, ok
}

// Has reports whether the table has a column.
func (t *Table) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}
