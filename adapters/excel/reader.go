// Package excel moves observation tables and forecast results in and
// out of xlsx workbooks, with a CSV fallback on file extension.
package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gasx/internal/dataset"
)

// DataReader loads a numeric table from an xlsx or csv file.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader that dispatches on file extension.
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadTable reads the file into a dataset table. The first row is the
// header; every following cell must parse as a float.
func (r *DataReader) ReadTable() (*dataset.Table, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}
	if r.fileType == "csv" {
		return dataset.LoadCSV(r.filePath)
	}
	return r.readWorkbook()
}

func (r *DataReader) readWorkbook() (*dataset.Table, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no data rows", sheet)
	}

	header := rows[0]
	columns := make([][]float64, len(header))
	for i, row := range rows[1:] {
		if len(row) < len(header) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i+2, len(row), len(header))
		}
		for j := range header {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+2, header[j], err)
			}
			columns[j] = append(columns[j], v)
		}
	}
	return dataset.FromColumns(header, columns...)
}
