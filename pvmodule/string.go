package pvmodule

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ShadingPattern maps a cell index inside a string to its shading factor.
type ShadingPattern map[int]float64

// CellString models a substring of series-connected cells protected by one
// bypass diode. All cells share the string current.
type CellString struct {
	NumCells    int
	Irradiance  float64 // W/m2
	Temperature float64 // degree C
	Cells       []*Cell

	bypass BypassDiodeParams
}

// StringResult is the state of a string at one forced current.
//
// Voltage is the terminal voltage after bypass clamping; RawVoltage is the
// plain sum of the cell voltages. The two differ exactly when BypassActive.
type StringResult struct {
	Voltage       float64   // V
	CellVoltages  []float64 // V, [NumCells]
	BypassActive  bool
	BypassCurrent float64 // A, through the bypass diode
	RawVoltage    float64 // V, sum of cell voltages before clamping
}

// StringCurve is a current sweep of one string.
type StringCurve struct {
	Currents     []float64 // A
	Voltages     []float64 // V
	Powers       []float64 // W
	BypassStates []bool
}

/*
NewCellString builds a string of num_cells cells under a common irradiance and
temperature, with per-cell shading overrides.

	Args:
		num_cells: number of series cells (typically 36 half-cells)
		irradiance: base irradiance, W/m2
		temperature: cell temperature, degree C
		pattern: cell index -> shading factor; absent cells are unshaded
		cfg: model configuration
		interp: shared LUT interpolator, or nil
*/
func NewCellString(num_cells int, irradiance, temperature float64, pattern ShadingPattern, cfg ModelConfig, interp *Interpolator) *CellString {
	cells := make([]*Cell, num_cells)
	for i := range cells {
		shading := 0.0
		if pattern != nil {
			if s, ok := pattern[i]; ok {
				shading = s
			}
		}
		cells[i] = NewCell(irradiance, temperature, shading, cfg.Cell, cfg.Solver, interp)
	}

	return &CellString{
		NumCells:    num_cells,
		Irradiance:  irradiance,
		Temperature: temperature,
		Cells:       cells,
		bypass:      cfg.Bypass,
	}
}

/*
VoltageAtCurrent evaluates the string at a fixed current (series constraint).

Each cell voltage is obtained at the shared current, the raw string voltage is
their sum, and the bypass diode clamps the terminal voltage to exactly -Vf
when the raw sum falls below that threshold.

	Args:
		current: string current, A

	Returns:
		string state at this current
*/
func (s *CellString) VoltageAtCurrent(current float64) StringResult {
	cell_voltages := make([]float64, len(s.Cells))
	for i, cell := range s.Cells {
		cell_voltages[i] = cell.VoltageForCurrent(current)
	}

	raw := floats.Sum(cell_voltages)
	voltage, active := apply_bypass(raw, s.bypass.Vf)

	bypass_current := 0.0
	if active {
		// Most of the string current redistributes into the diode once it
		// conducts; the exact split is not modeled.
		bypass_current = current * 0.9
	}

	return StringResult{
		Voltage:       voltage,
		CellVoltages:  cell_voltages,
		BypassActive:  active,
		BypassCurrent: bypass_current,
		RawVoltage:    raw,
	}
}

/*
Bypass diode clamp.

The diode conducts iff the raw string voltage is strictly below -v_f; a raw
voltage exactly at the threshold leaves the diode blocking. There is no
hysteresis and no forward-drop curve beyond the fixed threshold: the state is
a pure function of the instantaneous raw voltage.

	Args:
		raw: sum of cell voltages, V
		v_f: bypass diode forward threshold, V (positive number)

	Returns:
		(1) terminal voltage, V (clamped to exactly -v_f when conducting)
		(2) whether the diode conducts
*/
func apply_bypass(raw, v_f float64) (float64, bool) {
	if raw < -v_f {
		return -v_f, true
	}
	return raw, false
}

/*
IVCurve sweeps the string current.

	Args:
		lo, hi: current range, A; when hi <= lo the default range
		        [0, 1.1 * max cell Isc] is used
		points: number of samples

	Returns:
		string I-V curve
*/
func (s *CellString) IVCurve(lo, hi float64, points int) StringCurve {
	if hi <= lo {
		lo = 0.0
		hi = s.MaxShortCircuitCurrent() * 1.1
	}

	currents := floats.Span(make([]float64, points), lo, hi)
	voltages := make([]float64, points)
	powers := make([]float64, points)
	bypass := make([]bool, points)

	for i, current := range currents {
		r := s.VoltageAtCurrent(current)
		voltages[i] = r.Voltage
		powers[i] = r.Voltage * current
		bypass[i] = r.BypassActive
	}

	return StringCurve{Currents: currents, Voltages: voltages, Powers: powers, BypassStates: bypass}
}

/*
FindMPP grid-searches the string I-V curve for the maximum power point.

	Args:
		fast: sample 30 points instead of 100; accuracy is bounded by point
		      density, so callers needing sub-percent accuracy pass false
*/
func (s *CellString) FindMPP(fast bool) MPPPoint {
	points := 100
	if fast {
		points = 30
	}
	curve := s.IVCurve(0.0, 0.0, points)
	idx := floats.MaxIdx(curve.Powers)
	return MPPPoint{
		Voltage: curve.Voltages[idx],
		Current: curve.Currents[idx],
		Power:   curve.Powers[idx],
	}
}

// CellHotspot describes one reverse-biased cell inside a string.
type CellHotspot struct {
	Index         int
	Voltage       float64 // V, negative
	Power         float64 // W dissipated
	ShadingFactor float64
}

// ShadingAnalysis is a string state augmented with hot-spot detail.
type ShadingAnalysis struct {
	StringResult
	HotspotCells      []CellHotspot
	TotalHotspotPower float64 // W
	NumCellsInReverse int
}

/*
AnalyzeShading evaluates the string at the given current and flags every cell
operating in reverse bias, with its dissipated power.

	Args:
		current: string current, A
*/
func (s *CellString) AnalyzeShading(current float64) ShadingAnalysis {
	result := s.VoltageAtCurrent(current)

	analysis := ShadingAnalysis{StringResult: result}
	for i, v := range result.CellVoltages {
		if v < 0.0 {
			dissipated := -v * current
			analysis.HotspotCells = append(analysis.HotspotCells, CellHotspot{
				Index:         i,
				Voltage:       v,
				Power:         dissipated,
				ShadingFactor: s.Cells[i].ShadingFactor,
			})
			analysis.TotalHotspotPower += dissipated
		}
	}
	analysis.NumCellsInReverse = len(analysis.HotspotCells)
	return analysis
}

// NumShadedCells counts cells with a meaningful shading factor.
func (s *CellString) NumShadedCells() int {
	n := 0
	for _, cell := range s.Cells {
		if cell.ShadingFactor > 0.01 {
			n++
		}
	}
	return n
}

// MinShortCircuitCurrent returns the smallest cell Isc in the string, A.
// The string cannot source more than its weakest cell.
func (s *CellString) MinShortCircuitCurrent() float64 {
	min_isc := math.Inf(1)
	for _, cell := range s.Cells {
		min_isc = math.Min(min_isc, cell.ShortCircuitCurrent())
	}
	return min_isc
}

// MaxShortCircuitCurrent returns the largest cell Isc in the string, A.
func (s *CellString) MaxShortCircuitCurrent() float64 {
	max_isc := math.Inf(-1)
	for _, cell := range s.Cells {
		max_isc = math.Max(max_isc, cell.ShortCircuitCurrent())
	}
	return max_isc
}

// BypassActivationEstimate is a rough sizing of how many heavily shaded cells
// it takes to pull the string below the bypass threshold.
type BypassActivationEstimate struct {
	ThresholdVoltage        float64 // V, -Vf
	EstimatedMinShadedCells int
	ActualShadedCells       int
}

func (s *CellString) EstimateBypassActivation() BypassActivationEstimate {
	// A heavily shaded cell typically develops ~8 V of reverse bias before
	// the rest of the string can no longer compensate.
	const avg_reverse_v = 8.0
	min_cells := int(math.Ceil(s.bypass.Vf / avg_reverse_v))
	if min_cells < 1 {
		min_cells = 1
	}
	return BypassActivationEstimate{
		ThresholdVoltage:        -s.bypass.Vf,
		EstimatedMinShadedCells: min_cells,
		ActualShadedCells:       s.NumShadedCells(),
	}
}
