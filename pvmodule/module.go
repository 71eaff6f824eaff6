package pvmodule

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ShadingConfig maps a string identifier ("string_0", "string_1", ...) to the
// shading pattern of that string.
type ShadingConfig map[string]ShadingPattern

// StringKey returns the shading config key of string i.
func StringKey(i int) string {
	return fmt.Sprintf("string_%d", i)
}

// PVModule models a complete module: M strings in series (typically 3 x 36
// half-cells) sharing one current, each string protected by a bypass diode.
type PVModule struct {
	Irradiance  float64 // W/m2
	Temperature float64 // degree C
	Strings     []*CellString

	cfg ModelConfig
}

// ModuleResult is the state of the module at one forced current.
type ModuleResult struct {
	Voltage            float64 // V, sum of post-clamp string voltages
	Current            float64 // A
	TotalPower         float64 // W, Voltage * Current
	StringResults      []StringResult
	BypassStates       []bool
	NumBypassedStrings int
}

// ModuleCurve is a current sweep of the module.
type ModuleCurve struct {
	Currents     []float64 // A
	Voltages     []float64 // V
	Powers       []float64 // W
	BypassStates [][]bool  // [point][string]
}

// MPP is the maximum power point found by grid search, with the full module
// state at that current.
type MPP struct {
	MPPPoint
	Details ModuleResult
}

/*
NewPVModule builds a module under a common irradiance and temperature with a
per-string shading configuration.

	Args:
		irradiance: W/m2
		temperature: degree C
		shading: string key -> shading pattern; nil means unshaded
		cfg: model configuration
		interp: shared LUT interpolator, or nil to solve exactly
*/
func NewPVModule(irradiance, temperature float64, shading ShadingConfig, cfg ModelConfig, interp *Interpolator) *PVModule {
	strings := make([]*CellString, cfg.Module.NumStrings)
	for i := range strings {
		var pattern ShadingPattern
		if shading != nil {
			pattern = shading[StringKey(i)]
		}
		strings[i] = NewCellString(cfg.Module.CellsPerString, irradiance, temperature, pattern, cfg, interp)
	}

	return &PVModule{
		Irradiance:  irradiance,
		Temperature: temperature,
		Strings:     strings,
		cfg:         cfg,
	}
}

/*
VoltageAtCurrent evaluates the module at a fixed current. All strings are in
series, so the same current flows through each; the module voltage is the sum
of the (possibly bypass-clamped) string voltages.

	Args:
		current: module current, A
*/
func (m *PVModule) VoltageAtCurrent(current float64) ModuleResult {
	result := ModuleResult{
		Current:       current,
		StringResults: make([]StringResult, len(m.Strings)),
		BypassStates:  make([]bool, len(m.Strings)),
	}

	for i, s := range m.Strings {
		r := s.VoltageAtCurrent(current)
		result.StringResults[i] = r
		result.BypassStates[i] = r.BypassActive
		result.Voltage += r.Voltage
		if r.BypassActive {
			result.NumBypassedStrings++
		}
	}
	result.TotalPower = result.Voltage * current
	return result
}

// DefaultCurrentCeiling returns the upper bound of the default sweep range:
// the minimum string short-circuit current times a small safety margin. The
// module current is limited by the weakest series string; using the maximum
// here would sweep currents the module can never carry.
func (m *PVModule) DefaultCurrentCeiling() float64 {
	min_isc := math.Inf(1)
	for _, s := range m.Strings {
		min_isc = math.Min(min_isc, s.MinShortCircuitCurrent())
	}
	return min_isc * 1.05
}

/*
IVCurve sweeps the module current and records voltage, power and per-string
bypass states at every point.

	Args:
		lo, hi: current range, A; when hi <= lo the default range
		        [0, DefaultCurrentCeiling] is used
		points: number of samples
*/
func (m *PVModule) IVCurve(lo, hi float64, points int) ModuleCurve {
	if hi <= lo {
		lo = 0.0
		hi = m.DefaultCurrentCeiling()
	}

	currents := floats.Span(make([]float64, points), lo, hi)
	curve := ModuleCurve{
		Currents:     currents,
		Voltages:     make([]float64, points),
		Powers:       make([]float64, points),
		BypassStates: make([][]bool, points),
	}

	for i, current := range currents {
		r := m.VoltageAtCurrent(current)
		curve.Voltages[i] = r.Voltage
		curve.Powers[i] = r.TotalPower
		curve.BypassStates[i] = r.BypassStates
	}
	return curve
}

/*
FindMPP locates the maximum power point by discrete grid search over the I-V
curve: 30 points in fast mode, 100 otherwise. Accuracy is bounded by point
density; callers needing sub-percent accuracy should pass fast=false.

	Args:
		fast: trade accuracy for speed
*/
func (m *PVModule) FindMPP(fast bool) MPP {
	points := 100
	if fast {
		points = 30
	}
	curve := m.IVCurve(0.0, 0.0, points)
	idx := floats.MaxIdx(curve.Powers)
	mpp_current := curve.Currents[idx]

	return MPP{
		MPPPoint: MPPPoint{
			Voltage: curve.Voltages[idx],
			Current: mpp_current,
			Power:   curve.Powers[idx],
		},
		Details: m.VoltageAtCurrent(mpp_current),
	}
}

// VoltageMap is the voltage of every cell in the module at one current.
type VoltageMap struct {
	CellVoltages   *mat.Dense // V, strings x cells
	StringVoltages []float64  // V, post-clamp
	BypassStates   []bool
	ModuleVoltage  float64 // V
}

/*
CellVoltageMap returns the per-cell voltage matrix at the given current,
row i holding the cells of string i.

	Args:
		current: module current, A
*/
func (m *PVModule) CellVoltageMap(current float64) VoltageMap {
	result := m.VoltageAtCurrent(current)

	cells := mat.NewDense(len(m.Strings), m.cfg.Module.CellsPerString, nil)
	string_voltages := make([]float64, len(m.Strings))
	for i, r := range result.StringResults {
		cells.SetRow(i, r.CellVoltages)
		string_voltages[i] = r.Voltage
	}

	return VoltageMap{
		CellVoltages:   cells,
		StringVoltages: string_voltages,
		BypassStates:   result.BypassStates,
		ModuleVoltage:  result.Voltage,
	}
}

// Hotspot is one reverse-biased cell in the module.
type Hotspot struct {
	String        int
	Cell          int
	Voltage       float64 // V, negative
	Power         float64 // W dissipated
	ShadingFactor float64
}

// HotspotReport lists every hot-spot cell at one operating current.
type HotspotReport struct {
	Hotspots          []Hotspot
	TotalHotspotPower float64 // W
	NumHotspots       int
	BypassStates      []bool
}

/*
AnalyzeHotspots scans all cell voltages at the given current. Any cell with a
negative voltage dissipates power = -voltage * current and is a thermal risk.

	Args:
		current: module current, A
*/
func (m *PVModule) AnalyzeHotspots(current float64) HotspotReport {
	result := m.VoltageAtCurrent(current)

	report := HotspotReport{BypassStates: result.BypassStates}
	for si, r := range result.StringResults {
		for ci, v := range r.CellVoltages {
			if v < 0.0 {
				power := -v * current
				report.Hotspots = append(report.Hotspots, Hotspot{
					String:        si,
					Cell:          ci,
					Voltage:       v,
					Power:         power,
					ShadingFactor: m.Strings[si].Cells[ci].ShadingFactor,
				})
				report.TotalHotspotPower += power
			}
		}
	}
	report.NumHotspots = len(report.Hotspots)
	return report
}

// ShadingComparison quantifies the loss against an unshaded reference module
// under the same irradiance and temperature.
type ShadingComparison struct {
	UnshadedMPP      MPP
	ShadedMPP        MPP
	PowerLoss        float64 // W
	PowerLossPercent float64
	VoltageChange    float64 // V
	CurrentChange    float64 // A
}

func (m *PVModule) CompareWithUnshaded() ShadingComparison {
	ref := NewPVModule(m.Irradiance, m.Temperature, nil, m.cfg, m.interpolator())

	shaded := m.FindMPP(true)
	unshaded := ref.FindMPP(true)

	loss := unshaded.Power - shaded.Power
	return ShadingComparison{
		UnshadedMPP:      unshaded,
		ShadedMPP:        shaded,
		PowerLoss:        loss,
		PowerLossPercent: loss / unshaded.Power * 100.0,
		VoltageChange:    shaded.Voltage - unshaded.Voltage,
		CurrentChange:    shaded.Current - unshaded.Current,
	}
}

// StringShadingSummary summarizes the shading of one string.
type StringShadingSummary struct {
	Index       int
	TotalCells  int
	ShadedCells int
	AvgShading  float64
}

// ModuleShadingSummary summarizes the shading configuration of the module.
type ModuleShadingSummary struct {
	TotalCells        int
	Strings           []StringShadingSummary
	TotalShadedCells  int
	ShadingPercentage float64
}

func (m *PVModule) ShadingSummary() ModuleShadingSummary {
	summary := ModuleShadingSummary{TotalCells: m.cfg.Module.TotalCells}

	for i, s := range m.Strings {
		factors := make([]float64, len(s.Cells))
		for j, cell := range s.Cells {
			factors[j] = cell.ShadingFactor
		}
		shaded := s.NumShadedCells()
		summary.Strings = append(summary.Strings, StringShadingSummary{
			Index:       i,
			TotalCells:  s.NumCells,
			ShadedCells: shaded,
			AvgShading:  stat.Mean(factors, nil),
		})
		summary.TotalShadedCells += shaded
	}
	summary.ShadingPercentage = float64(summary.TotalShadedCells) / float64(summary.TotalCells) * 100.0
	return summary
}

// OperatingSample is one simulated operating point with its hot-spot report.
type OperatingSample struct {
	Current  float64 // A
	Result   ModuleResult
	Hotspots HotspotReport
}

/*
SimulateScenarios evaluates the module at several currents. With a nil input
it samples zero, half MPP, MPP and 120% of MPP current.

	Args:
		currents: currents to simulate, A, or nil for the default set
*/
func (m *PVModule) SimulateScenarios(currents []float64) []OperatingSample {
	if currents == nil {
		i_mpp := m.FindMPP(true).Current
		currents = []float64{0.0, i_mpp * 0.5, i_mpp, i_mpp * 1.2}
	}

	samples := make([]OperatingSample, len(currents))
	for i, current := range currents {
		samples[i] = OperatingSample{
			Current:  current,
			Result:   m.VoltageAtCurrent(current),
			Hotspots: m.AnalyzeHotspots(current),
		}
	}
	return samples
}

// interpolator returns the LUT shared by the module's cells (nil when the
// module was built without one).
func (m *PVModule) interpolator() *Interpolator {
	if len(m.Strings) == 0 || len(m.Strings[0].Cells) == 0 {
		return nil
	}
	return m.Strings[0].Cells[0].interp
}
