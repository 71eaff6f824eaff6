package pvmodule

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GridAxes holds the four coordinate axes of the LUT.
//
// The default resolution is a deliberate accuracy/size/generation-time
// tradeoff: 10 x 12 x 11 x 200 = 264,000 points, generated once and cached.
type GridAxes struct {
	Irradiance  []float64 `json:"irradiance"`  // W/m2
	Temperature []float64 `json:"temperature"` // degree C
	Shading     []float64 `json:"shading"`     // 0..1
	Current     []float64 `json:"current"`     // A
}

func DefaultGridAxes() GridAxes {
	return GridAxes{
		Irradiance:  floats.Span(make([]float64, 10), 200.0, 1000.0),
		Temperature: floats.Span(make([]float64, 12), -20.0, 90.0),
		Shading:     floats.Span(make([]float64, 11), 0.0, 1.0),
		Current:     floats.Span(make([]float64, 200), 0.0, 15.0),
	}
}

// Shape returns the axis lengths (irradiance, temperature, shading, current).
func (a GridAxes) Shape() [4]int {
	return [4]int{len(a.Irradiance), len(a.Temperature), len(a.Shading), len(a.Current)}
}

// Size returns the total number of grid points.
func (a GridAxes) Size() int {
	s := a.Shape()
	return s[0] * s[1] * s[2] * s[3]
}

// LUTMetadata describes how a cached grid was produced.
type LUTMetadata struct {
	GeneratedAt    string `json:"generated_at"`     // RFC 3339
	CellParamsHash string `json:"cell_params_hash"` // MD5 of the parameter set, see CellParams.Hash
	GridShape      [4]int `json:"grid_shape"`
}

// LUTData is the persistence and export format of the LUT: the four axis
// arrays plus the voltage grid flattened in grid-major order
// [irradiance][temperature][shading][current]. A consumer receiving an
// exported copy can reconstruct interpolation without ambiguity.
type LUTData struct {
	Axes     GridAxes    `json:"axes"`
	Voltage  []float64   `json:"voltage"` // V, grid-major
	Metadata LUTMetadata `json:"metadata"`
}

// ProgressFunc receives generation progress. percent increases monotonically
// from 0 to 100.
type ProgressFunc func(percent int, message string)

/*
GenerateLUT computes the full voltage grid with the exact cell solver.

The interpolator is never consulted here, so the grid cannot accumulate
circular approximation error. Generation takes seconds to tens of seconds at
the default resolution and reports progress through the callback.

	Args:
		axes: grid axes
		params: cell electrical parameters
		solver: numeric solver parameters
		progress: progress callback, may be nil

	Returns:
		generated LUT data
*/
func GenerateLUT(axes GridAxes, params CellParams, solver SolverParams, progress ProgressFunc) *LUTData {
	shape := axes.Shape()
	voltage := make([]float64, axes.Size())

	total := shape[0] * shape[1] * shape[2]
	iteration := 0
	off := 0

	for _, irradiance := range axes.Irradiance {
		for _, temperature := range axes.Temperature {
			for _, shading := range axes.Shading {
				cell := NewCell(irradiance, temperature, shading, params, solver, nil)
				for _, current := range axes.Current {
					v, _ := cell.ExactVoltageForCurrent(current)
					voltage[off] = v
					off++
				}

				iteration++
				if progress != nil && iteration%10 == 0 {
					percent := 100 * iteration / total
					progress(percent, fmt.Sprintf(
						"generating LUT: %.0f W/m2, %.0f degC, %.0f%% shading",
						irradiance, temperature, shading*100.0))
				}
			}
		}
	}
	if progress != nil {
		progress(100, "LUT generation complete")
	}

	return &LUTData{
		Axes:    axes,
		Voltage: voltage,
		Metadata: LUTMetadata{
			GeneratedAt:    time.Now().Format(time.RFC3339),
			CellParamsHash: params.Hash(),
			GridShape:      shape,
		},
	}
}

/*
SaveLUT persists the LUT to a single gzip-compressed JSON file.

	Args:
		lut: LUT data
		path: cache file path; parent directories are created
*/
func SaveLUT(lut *LUTData, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	if err := json.NewEncoder(zw).Encode(lut); err != nil {
		zw.Close()
		return fmt.Errorf("encode lut: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush lut: %w", err)
	}
	return nil
}

/*
LoadLUT restores a LUT from a cache file written by SaveLUT.

	Args:
		path: cache file path

	Returns:
		LUT data, or an error for a missing, unreadable or inconsistent file
*/
func LoadLUT(path string) (*LUTData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	defer zr.Close()

	var lut LUTData
	if err := json.NewDecoder(zr).Decode(&lut); err != nil {
		return nil, fmt.Errorf("decode lut: %w", err)
	}
	if lut.Axes.Size() != len(lut.Voltage) {
		return nil, fmt.Errorf("lut cache inconsistent: %d values for shape %v",
			len(lut.Voltage), lut.Axes.Shape())
	}
	return &lut, nil
}

/*
IsValidLUT reports whether the cache at path matches the given parameter set.

A hash mismatch means the physical constants changed since generation; the
cache is then stale and must be regenerated, or every downstream result would
silently be wrong. Missing or corrupt files are simply invalid.

	Args:
		path: cache file path
		params: current cell parameters

	Returns:
		true when the cache can be used as-is
*/
func IsValidLUT(path string, params CellParams) bool {
	lut, err := LoadLUT(path)
	if err != nil {
		return false
	}
	if lut.Metadata.CellParamsHash != params.Hash() {
		log.Printf("LUT cache invalid (cell parameters changed)")
		return false
	}
	return true
}

/*
InitializeLUT loads the cache when it is present and valid, and generates and
persists a fresh grid otherwise.

A failure to write the cache file is logged but not fatal: the in-memory grid
is still returned and the next run regenerates.

	Args:
		path: cache file path
		axes: grid axes used when regenerating
		params: cell electrical parameters
		solver: numeric solver parameters
		force: regenerate even when a valid cache exists
		progress: generation progress callback, may be nil

	Returns:
		(1) LUT data
		(2) interpolator over the data
*/
func InitializeLUT(path string, axes GridAxes, params CellParams, solver SolverParams, force bool, progress ProgressFunc) (*LUTData, *Interpolator, error) {
	var lut *LUTData

	if !force && IsValidLUT(path, params) {
		loaded, err := LoadLUT(path)
		if err == nil {
			log.Printf("LUT loaded from `%s`", path)
			lut = loaded
		}
	}

	if lut == nil {
		shape := axes.Shape()
		log.Printf("generating LUT (%d x %d x %d x %d = %d points)",
			shape[0], shape[1], shape[2], shape[3], axes.Size())
		lut = GenerateLUT(axes, params, solver, progress)
		if err := SaveLUT(lut, path); err != nil {
			log.Printf("could not save LUT cache: %v", err)
		} else {
			log.Printf("LUT saved to `%s`", path)
		}
	}

	interp, err := NewInterpolator(lut)
	if err != nil {
		return nil, nil, err
	}
	return lut, interp, nil
}
