package pvmodule

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Provenance tags how a cell voltage was obtained, so downstream consumers
// can distinguish exact solutions from approximations when precision matters.
type Provenance int

const (
	SolveExact    Provenance = iota // bounded root finding on the diode equation
	SolveLUT                        // multilinear interpolation over the pre-computed grid
	SolveFallback                   // analytic estimate after a bracket failure
)

func (p Provenance) String() string {
	switch p {
	case SolveExact:
		return "exact"
	case SolveLUT:
		return "lut"
	case SolveFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Cell models a single half-cell: forward bias, reverse bias under shading,
// and avalanche breakdown. A Cell is cheap to construct and never mutated
// afterwards; the interpolator reference is shared and read-only.
type Cell struct {
	Irradiance    float64 // W/m2
	Temperature   float64 // degree C
	ShadingFactor float64 // 0..1

	Iph float64 // A, photocurrent under the operating condition
	Is  float64 // A, saturation current back-calculated for this temperature
	Vt  float64 // V, thermal voltage at this temperature

	params CellParams
	solver SolverParams
	interp *Interpolator // nil when no LUT is available
}

/*
NewCell builds a cell for one operating condition.

	Args:
		irradiance: solar irradiance, W/m2
		temperature: cell temperature, degree C
		shading: shaded fraction of the cell, 0..1 (clamped)
		params: cell electrical parameters
		solver: numeric solver parameters
		interp: shared LUT interpolator, or nil to always solve exactly
*/
func NewCell(irradiance, temperature, shading float64, params CellParams, solver SolverParams, interp *Interpolator) *Cell {
	shading = clamp(shading, 0.0, 1.0)
	v_t := get_v_t(temperature)
	i_ph := get_i_ph(irradiance, temperature, shading, params.IphRef, params.AlphaIsc)
	i_s := get_i_s(i_ph, temperature, params.N, v_t, params.BetaVoc, params.VocRef, params.Is)

	return &Cell{
		Irradiance:    irradiance,
		Temperature:   temperature,
		ShadingFactor: shading,
		Iph:           i_ph,
		Is:            i_s,
		Vt:            v_t,
		params:        params,
		solver:        solver,
		interp:        interp,
	}
}

/*
Current evaluates the cell current at a given voltage.

Above -0.95*Vbr the single-diode equation
I = Iph - Is*(exp((V+I*Rs)/(n*Vt)) - 1) - (V+I*Rs)/Rsh
is solved for I by relaxed fixed-point iteration; below that the avalanche
model takes over.

	Args:
		voltage: cell voltage, V

	Returns:
		cell current, A
*/
func (c *Cell) Current(voltage float64) float64 {
	if voltage > -c.params.Vbr*0.95 {
		return c.diode_current(voltage)
	}
	return c.avalanche_current(voltage)
}

// Relaxed fixed-point solution of the implicit single-diode equation.
func (c *Cell) diode_current(voltage float64) float64 {
	n_v_t := c.params.N * c.Vt
	i := c.Iph
	for k := 0; k < c.solver.FixedPointIterations; k++ {
		v_diode := voltage + i*c.params.Rs
		exp_arg := clamp(v_diode/n_v_t, -50.0, 50.0)
		i_diode := c.Is * (math.Exp(exp_arg) - 1.0)
		i_shunt := v_diode / c.params.Rsh
		i_new := c.Iph - i_diode - i_shunt
		i = c.solver.Relaxation*i + (1.0-c.solver.Relaxation)*i_new
	}
	return i
}

/*
Avalanche breakdown current in deep reverse bias.

Beyond the breakdown voltage the current magnitude grows exponentially with
the excess voltage (scale AvalancheScale); before breakdown only a small
linear leakage flows. The two pieces meet continuously at |V| = Vbr.

	Args:
		voltage: cell voltage (negative), V

	Returns:
		cell current, A (negative: reverse flow)
*/
func (c *Cell) avalanche_current(voltage float64) float64 {
	v_excess := math.Abs(voltage) - c.params.Vbr
	i_leak := -c.Is * 100.0
	if v_excess > 0.0 {
		exp_arg := clamp(v_excess/AvalancheScale, -50.0, 50.0)
		return i_leak * math.Exp(exp_arg)
	}
	return i_leak + v_excess/c.params.Rsh
}

/*
VoltageForCurrent finds the voltage at which the cell carries the target
current. This is the series-constraint inverse invoked once per cell per
operating point; when a LUT interpolator is present it substitutes for the
exact solve at a ~100-300x speedup.

	Args:
		target: forced cell current, A

	Returns:
		cell voltage, V
*/
func (c *Cell) VoltageForCurrent(target float64) float64 {
	v, _ := c.TaggedVoltageForCurrent(target)
	return v
}

// TaggedVoltageForCurrent is VoltageForCurrent plus the solve provenance.
func (c *Cell) TaggedVoltageForCurrent(target float64) (float64, Provenance) {
	if c.interp != nil {
		v := c.interp.Interpolate(c.Irradiance, c.Temperature, c.ShadingFactor, target)
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, SolveLUT
		}
		// Fall through to the exact path; degraded, never fatal.
	}
	return c.ExactVoltageForCurrent(target)
}

/*
ExactVoltageForCurrent solves the inverse problem with bounded bisection,
never consulting the interpolator. The LUT generator uses this entry point so
the grid is free of circular approximation.

Bracket choice by regime: a forward current up to ~Iph is searched in
[-0.05, 1.2*Voc_estimate]; anything else falls to the reverse bracket
[-Vbr, 1.2*Voc_estimate]. If neither bracket contains a sign change the
documented analytic fallback is returned and tagged as such.

	Args:
		target: forced cell current, A

	Returns:
		(1) cell voltage, V
		(2) provenance: SolveExact or SolveFallback
*/
func (c *Cell) ExactVoltageForCurrent(target float64) (float64, Provenance) {
	objective := func(v float64) float64 {
		return c.Current(v) - target
	}

	v_oc_est := c.open_circuit_estimate()
	v_high := v_oc_est * 1.2

	if target >= 0.0 && target <= c.Iph*1.01 {
		if v, ok := bisect(objective, -0.05, v_high, c.solver.BisectTol, c.solver.BisectMaxIter); ok {
			return v, SolveExact
		}
	}
	if v, ok := bisect(objective, -c.params.Vbr, v_high, c.solver.BisectTol, c.solver.BisectMaxIter); ok {
		return v, SolveExact
	}

	// Bracket failure: analytic estimate, a deliberate approximation.
	switch {
	case target >= 0.0 && target <= c.Iph:
		return v_oc_est * (1.0 - target/math.Max(c.Iph, 1e-6)) * 0.8, SolveFallback
	case target > c.Iph:
		// The cell must be in deep reverse bias to carry more than its
		// photocurrent; the breakdown voltage is the conservative answer.
		return -c.params.Vbr, SolveFallback
	default:
		return 0.0, SolveFallback
	}
}

// Analytic open circuit estimate n*Vt*ln((Iph+Is)/Is), used to seed brackets.
func (c *Cell) open_circuit_estimate() float64 {
	if c.Iph <= 0.0 || c.Is <= 0.0 {
		return 0.4
	}
	return c.params.N * c.Vt * math.Log((c.Iph+c.Is)/c.Is)
}

/*
OpenCircuitVoltage returns the open circuit voltage: the analytic estimate
refined by a few fixed-point corrections for the shunt current.

	Returns:
		open circuit voltage, V
*/
func (c *Cell) OpenCircuitVoltage() float64 {
	v := c.open_circuit_estimate()
	if c.Iph <= 0.0 || c.Is <= 0.0 {
		return v
	}
	n_v_t := c.params.N * c.Vt
	for k := 0; k < 3; k++ {
		i_net := c.Iph - v/c.params.Rsh
		if i_net <= 0.0 {
			break
		}
		v = n_v_t * math.Log((i_net+c.Is)/c.Is)
	}
	return v
}

// ShortCircuitCurrent returns the current at zero voltage, A.
func (c *Cell) ShortCircuitCurrent() float64 {
	return c.Current(0.0)
}

// Power returns the electrical power at the given voltage, W.
// Positive is generation, negative is dissipation.
func (c *Cell) Power(voltage float64) float64 {
	return voltage * c.Current(voltage)
}

/*
IVCurve sweeps the cell voltage and returns the I-V characteristic.

	Args:
		v_min: sweep start, V (negative values reach the breakdown region)
		v_max: sweep end, V
		points: number of samples

	Returns:
		(1) voltages, V, [points]
		(2) currents, A, [points]
*/
func (c *Cell) IVCurve(v_min, v_max float64, points int) ([]float64, []float64) {
	voltages := floats.Span(make([]float64, points), v_min, v_max)
	currents := make([]float64, points)
	for i, v := range voltages {
		currents[i] = c.Current(v)
	}
	return voltages, currents
}

// MPPPoint is one point of maximum power: voltage V, current A, power W.
type MPPPoint struct {
	Voltage float64
	Current float64
	Power   float64
}

// FindMPP grid-searches the forward quadrant for the cell maximum power point.
func (c *Cell) FindMPP() MPPPoint {
	voltages, currents := c.IVCurve(0.0, c.OpenCircuitVoltage()*1.1, 200)
	powers := make([]float64, len(voltages))
	for i := range voltages {
		powers[i] = voltages[i] * currents[i]
	}
	idx := floats.MaxIdx(powers)
	return MPPPoint{Voltage: voltages[idx], Current: currents[idx], Power: powers[idx]}
}

// InBreakdown reports whether the voltage is in the breakdown region.
func (c *Cell) InBreakdown(voltage float64) bool {
	return voltage < -c.params.Vbr*0.9
}

/*
HotspotPower returns the power dissipated when the string forces the given
current through this cell. Zero when the cell stays in forward bias.

	Args:
		current: forced string current, A

	Returns:
		dissipated power, W (positive means heating)
*/
func (c *Cell) HotspotPower(current float64) float64 {
	v := c.VoltageForCurrent(current)
	if v < 0.0 {
		return -v * current
	}
	return 0.0
}

/*
Bounded bisection on [lo, hi].

	Args:
		f: objective; a root is sought where f crosses zero
		lo, hi: bracket endpoints
		tol: half-interval tolerance on the root
		max_iter: hard iteration cap

	Returns:
		(1) root estimate
		(2) false when the bracket contains no sign change
*/
func bisect(f func(float64) float64, lo, hi, tol float64, max_iter int) (float64, bool) {
	f_lo := f(lo)
	f_hi := f(hi)
	if f_lo == 0.0 {
		return lo, true
	}
	if f_hi == 0.0 {
		return hi, true
	}
	if f_lo*f_hi > 0.0 {
		return 0.0, false
	}
	for k := 0; k < max_iter; k++ {
		mid := 0.5 * (lo + hi)
		f_mid := f(mid)
		if f_mid == 0.0 || 0.5*(hi-lo) < tol {
			return mid, true
		}
		if f_lo*f_mid < 0.0 {
			hi = mid
		} else {
			lo = mid
			f_lo = f_mid
		}
	}
	return 0.5 * (lo + hi), true
}
