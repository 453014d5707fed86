package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"gasx/domain/run"
	"gasx/forecast"
)

const (
	forecastSheet = "Forecast"
	manifestSheet = "Run"
)

// WriteForecast exports a forecast table, and optionally the manifest
// of the run that produced it, to an xlsx workbook.
func WriteForecast(path string, t *forecast.Table, m *run.Manifest) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", forecastSheet)
	for j, name := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(j+2, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(forecastSheet, cell, name); err != nil {
			return err
		}
	}
	if err := f.SetCellValue(forecastSheet, "A1", "Step"); err != nil {
		return err
	}
	for i, row := range t.Values {
		stepCell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(forecastSheet, stepCell, i+1); err != nil {
			return err
		}
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+2, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(forecastSheet, cell, v); err != nil {
				return err
			}
		}
	}

	if m != nil {
		if err := writeManifestSheet(f, m); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeManifestSheet(f *excelize.File, m *run.Manifest) error {
	if _, err := f.NewSheet(manifestSheet); err != nil {
		return err
	}
	pairs := [][2]interface{}{
		{"Run ID", string(m.RunID)},
		{"Formula", m.Formula},
		{"Family", m.Family},
		{"AR", m.AR},
		{"SC", m.SC},
		{"Method", m.Method},
		{"Seed", m.Seed},
		{"Observations", m.Obs},
		{"Log Likelihood", m.LogLikelihood},
		{"Runtime (ms)", m.RuntimeMS},
		{"Fingerprint", m.Fingerprint},
	}
	for i, p := range pairs {
		keyCell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		valCell, err := excelize.CoordinatesToCellName(2, i+1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(manifestSheet, keyCell, p[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(manifestSheet, valCell, p[1]); err != nil {
			return err
		}
	}
	return nil
}
