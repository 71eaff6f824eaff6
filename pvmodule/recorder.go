package pvmodule

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// CurveRow is one row of an exported module I-V sweep.
type CurveRow struct {
	Current         float64 `csv:"current_a"`
	Voltage         float64 `csv:"voltage_v"`
	Power           float64 `csv:"power_w"`
	BypassedStrings int     `csv:"bypassed_strings"`
}

// HotspotRow is one row of an exported hot-spot report.
type HotspotRow struct {
	String        int     `csv:"string"`
	Cell          int     `csv:"cell"`
	Voltage       float64 `csv:"voltage_v"`
	Power         float64 `csv:"power_w"`
	ShadingFactor float64 `csv:"shading_factor"`
}

/*
SaveCurveCSV writes a module I-V sweep to a CSV file.

	Args:
		curve: module current sweep
		path: output file path; parent directories are created
*/
func SaveCurveCSV(curve ModuleCurve, path string) error {
	rows := make([]CurveRow, len(curve.Currents))
	for i := range curve.Currents {
		bypassed := 0
		for _, active := range curve.BypassStates[i] {
			if active {
				bypassed++
			}
		}
		rows[i] = CurveRow{
			Current:         curve.Currents[i],
			Voltage:         curve.Voltages[i],
			Power:           curve.Powers[i],
			BypassedStrings: bypassed,
		}
	}
	return save_csv(rows, path)
}

/*
SaveHotspotCSV writes a hot-spot report to a CSV file.

	Args:
		report: hot-spot scan result
		path: output file path; parent directories are created
*/
func SaveHotspotCSV(report HotspotReport, path string) error {
	rows := make([]HotspotRow, len(report.Hotspots))
	for i, h := range report.Hotspots {
		rows[i] = HotspotRow{
			String:        h.String,
			Cell:          h.Cell,
			Voltage:       h.Voltage,
			Power:         h.Power,
			ShadingFactor: h.ShadingFactor,
		}
	}
	return save_csv(rows, path)
}

func save_csv[T any](rows []T, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
