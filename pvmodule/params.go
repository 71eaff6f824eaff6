package pvmodule

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math"
)

// Physical constants.
const (
	BOLTZMANN         = 1.380649e-23    // J/K
	ELEMENTARY_CHARGE = 1.602176634e-19 // C

	// Thermal voltage at 25 degree C (kT/q at 298.15 K), V
	VT_REF = 0.025693
)

// Standard Test Conditions.
const (
	StcIrradiance  = 1000.0 // W/m2
	StcTemperature = 25.0   // degree C
)

// Avalanche characteristic voltage scale, V
const AvalancheScale = 0.5

// CellParams holds the electrical parameters of a single half-cell.
// A parameter set is a fixed input: it is never mutated during a computation.
type CellParams struct {
	IphRef   float64 `json:"i_ph_ref"`  // A, photocurrent at 1000 W/m2, 25 degree C
	Is       float64 `json:"i_s"`       // A, reverse saturation current floor (used when the cell is dark)
	N        float64 `json:"n"`         // diode ideality factor
	Rs       float64 `json:"r_s"`       // ohm, series resistance
	Rsh      float64 `json:"r_sh"`      // ohm, shunt resistance
	VbrMin   float64 `json:"v_br_min"`  // V, minimum breakdown voltage magnitude
	VbrMax   float64 `json:"v_br_max"`  // V, maximum breakdown voltage magnitude
	Vbr      float64 `json:"v_br"`      // V, typical breakdown voltage magnitude used in calculations
	AlphaIsc float64 `json:"alpha_isc"` // 1/degree C, relative temperature coefficient for Isc
	BetaVoc  float64 `json:"beta_voc"`  // V/degree C, temperature coefficient for Voc
	VocRef   float64 `json:"v_oc_ref"`  // V, open circuit voltage at STC
	Area     float64 `json:"area"`      // m2, approximate area of a half-cell
}

// BypassDiodeParams holds the Schottky bypass diode parameters of a substring.
type BypassDiodeParams struct {
	Vf      float64 `json:"v_f"`      // V, forward voltage drop
	IsDiode float64 `json:"i_s"`      // A, diode saturation current
	NDiode  float64 `json:"n"`        // diode ideality factor
}

// ModuleParams holds the series structure of the module.
type ModuleParams struct {
	TotalCells     int `json:"total_cells"`      // total half-cells in module
	NumStrings     int `json:"num_strings"`      // number of bypass-protected substrings
	CellsPerString int `json:"cells_per_string"` // half-cells per substring
}

// SolverParams holds the numeric knobs of the cell solver. They are explicit
// configuration so accuracy/speed tradeoffs are tunable without code changes.
type SolverParams struct {
	FixedPointIterations int     `json:"fixed_point_iterations"` // iterations of the relaxed diode-equation fixed point
	Relaxation           float64 `json:"relaxation"`             // weight of the previous iterate, 0..1
	BisectTol            float64 `json:"bisect_tol"`             // V, half-interval tolerance of the bounded bisection
	BisectMaxIter        int     `json:"bisect_max_iter"`        // hard iteration cap; no solve can loop unboundedly
}

func DefaultCellParams() CellParams {
	return CellParams{
		IphRef:   10.0,
		Is:       1e-9,
		N:        1.3,
		Rs:       0.005,
		Rsh:      500.0,
		VbrMin:   10.0,
		VbrMax:   20.0,
		Vbr:      12.0,
		AlphaIsc: 0.0005,
		BetaVoc:  -0.0023,
		VocRef:   0.65,
		Area:     0.02,
	}
}

func DefaultBypassDiodeParams() BypassDiodeParams {
	return BypassDiodeParams{
		Vf:      0.4,
		IsDiode: 1e-6,
		NDiode:  1.05,
	}
}

func DefaultModuleParams() ModuleParams {
	return ModuleParams{
		TotalCells:     108,
		NumStrings:     3,
		CellsPerString: 36,
	}
}

func DefaultSolverParams() SolverParams {
	return SolverParams{
		FixedPointIterations: 10,
		Relaxation:           0.5,
		BisectTol:            1e-6,
		BisectMaxIter:        100,
	}
}

// ModelConfig bundles every fixed parameter set consumed by the model.
type ModelConfig struct {
	Cell   CellParams        `json:"cell"`
	Bypass BypassDiodeParams `json:"bypass_diode"`
	Module ModuleParams      `json:"module"`
	Solver SolverParams      `json:"solver"`
}

func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Cell:   DefaultCellParams(),
		Bypass: DefaultBypassDiodeParams(),
		Module: DefaultModuleParams(),
		Solver: DefaultSolverParams(),
	}
}

/*
Hash returns the MD5 digest of the cell parameter set.

The digest is stored in the LUT cache metadata; any change to a physical
constant changes the digest and invalidates old caches.

	Returns:
		hex digest of the JSON-encoded parameter set
*/
func (p CellParams) Hash() string {
	b, err := json.Marshal(p)
	if err != nil {
		// CellParams contains only scalar fields; Marshal cannot fail.
		panic(err)
	}
	return fmt.Sprintf("%x", md5.Sum(b))
}

/*
Thermal voltage at the given cell temperature.

	Args:
		theta: cell temperature, degree C

	Returns:
		thermal voltage kT/q, V
*/
func get_v_t(theta float64) float64 {
	t_kelvin := theta + 273.15
	return BOLTZMANN * t_kelvin / ELEMENTARY_CHARGE
}

/*
Photocurrent under the given operating condition.

Scales linearly with irradiance, is corrected for temperature and reduced by
the shading factor. Monotonically non-decreasing in irradiance and
non-increasing in shading.

	Args:
		irradiance: solar irradiance, W/m2
		theta: cell temperature, degree C
		shading: shaded fraction of the cell, 0..1
		i_ph_ref: reference photocurrent at STC, A
		alpha_isc: relative Isc temperature coefficient, 1/degree C

	Returns:
		photocurrent, A
*/
func get_i_ph(irradiance, theta, shading, i_ph_ref, alpha_isc float64) float64 {
	shading = clamp(shading, 0.0, 1.0)
	i_ph := i_ph_ref * (irradiance / StcIrradiance)
	i_ph *= 1.0 + alpha_isc*(theta-StcTemperature)
	return i_ph * (1.0 - shading)
}

/*
Temperature-dependent saturation current.

Back-calculated so that the analytic open circuit voltage n*Vt*ln((Iph+Is)/Is)
matches the target Voc at this temperature, which makes the Voc temperature
coefficient hold exactly rather than approximately.

	Args:
		i_ph: photocurrent, A
		theta: cell temperature, degree C
		n: diode ideality factor
		v_t: thermal voltage, V
		beta_voc: Voc temperature coefficient, V/degree C
		v_oc_ref: reference Voc at STC, V
		i_s_floor: saturation current used for a dark cell, A

	Returns:
		saturation current, A
*/
func get_i_s(i_ph, theta, n, v_t, beta_voc, v_oc_ref, i_s_floor float64) float64 {
	if i_ph <= 1e-9 {
		return i_s_floor
	}
	v_oc_target := v_oc_ref + beta_voc*(theta-StcTemperature)
	return i_ph * math.Exp(-v_oc_target/(n*v_t))
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, x))
}
