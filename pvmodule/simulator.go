package pvmodule

import (
	"log"
	"sync"
	"sync/atomic"
)

// Simulator is the external interface of the core: it owns the fixed
// parameter sets, builds modules on demand, and hands every cell the shared
// read-only LUT interpolator once one has been published.
//
// Until a LUT is published (or when none ever is), every computation runs on
// the exact solver path: slower, never wrong. Publishing is atomic, so
// composition requests running concurrently with background generation
// switch over cleanly and are never blocked.
type Simulator struct {
	cfg  ModelConfig
	axes GridAxes

	interp atomic.Value // *Interpolator
	lut    atomic.Value // *LUTData
	gen_mu sync.Mutex   // serializes generation/loading
}

// OperatingPoint is the snapshot of the module at one forced current.
// Ephemeral: created per query, never persisted.
type OperatingPoint struct {
	Current      float64     // A
	Voltage      float64     // V
	Power        float64     // W
	CellVoltages [][]float64 // V, [string][cell]
	BypassStates []bool      // per string
}

/*
NewSimulator builds a simulator.

	Args:
		cfg: model configuration (fixed input, not runtime-mutable)
		axes: LUT grid axes used when a grid has to be generated
*/
func NewSimulator(cfg ModelConfig, axes GridAxes) *Simulator {
	return &Simulator{cfg: cfg, axes: axes}
}

// Config returns the model configuration.
func (s *Simulator) Config() ModelConfig {
	return s.cfg
}

// Interpolator returns the published LUT interpolator, or nil while no LUT
// is available yet.
func (s *Simulator) Interpolator() *Interpolator {
	ip, _ := s.interp.Load().(*Interpolator)
	return ip
}

// SetInterpolator publishes an externally built interpolator (and optionally
// its backing data). Used by tests with synthetic grids.
func (s *Simulator) SetInterpolator(ip *Interpolator, lut *LUTData) {
	if lut != nil {
		s.lut.Store(lut)
	}
	if ip != nil {
		s.interp.Store(ip)
	}
}

/*
InitLUT loads or generates the LUT cache and publishes the interpolator.

Stale (parameter hash mismatch), missing or corrupt caches are treated as
cache misses and regenerated; no cache condition is surfaced as an error.

	Args:
		path: cache file path
		force: regenerate even when a valid cache exists
		progress: generation progress callback, may be nil
*/
func (s *Simulator) InitLUT(path string, force bool, progress ProgressFunc) error {
	s.gen_mu.Lock()
	defer s.gen_mu.Unlock()

	lut, interp, err := InitializeLUT(path, s.axes, s.cfg.Cell, s.cfg.Solver, force, progress)
	if err != nil {
		return err
	}
	s.lut.Store(lut)
	s.interp.Store(interp)
	return nil
}

/*
InitLUTAsync runs InitLUT off the caller's path. Computations issued before
completion use the exact solver; once the interpolator is published they
switch over atomically. Generation is idempotent and runs to completion (no
cancellation; it is safe to let it finish).

	Returns:
		channel receiving the single completion result
*/
func (s *Simulator) InitLUTAsync(path string, force bool, progress ProgressFunc) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := s.InitLUT(path, force, progress)
		if err != nil {
			log.Printf("background LUT initialization failed: %v", err)
		}
		done <- err
	}()
	return done
}

// ExportLUT hands a consumer (e.g. a client-side interpolator) the axis
// arrays, the flattened grid-major voltage grid and its shape. The second
// return is false while no LUT has been published.
func (s *Simulator) ExportLUT() (*LUTData, bool) {
	lut, ok := s.lut.Load().(*LUTData)
	return lut, ok
}

// NewModule builds a module wired to the currently published interpolator.
// Inputs outside the configured physical ranges should be clamped by the
// caller; the exact solver is not guaranteed robust far outside them.
func (s *Simulator) NewModule(irradiance, temperature float64, shading ShadingConfig) *PVModule {
	return NewPVModule(irradiance, temperature, shading, s.cfg, s.Interpolator())
}

/*
ComputeOperatingPoint composes the module at one forced current.

	Args:
		irradiance: W/m2
		temperature: degree C
		shading: string key -> {cell index -> shading factor in [0,1]}
		current: module current, A
*/
func (s *Simulator) ComputeOperatingPoint(irradiance, temperature float64, shading ShadingConfig, current float64) OperatingPoint {
	result := s.NewModule(irradiance, temperature, shading).VoltageAtCurrent(current)

	cell_voltages := make([][]float64, len(result.StringResults))
	for i, r := range result.StringResults {
		cell_voltages[i] = r.CellVoltages
	}

	return OperatingPoint{
		Current:      current,
		Voltage:      result.Voltage,
		Power:        result.TotalPower,
		CellVoltages: cell_voltages,
		BypassStates: result.BypassStates,
	}
}

/*
ComputeIVCurve sweeps the module current.

	Args:
		lo, hi: current range, A; hi <= lo selects the default range bounded
		        by the weakest string's short-circuit current
		points: number of samples
*/
func (s *Simulator) ComputeIVCurve(irradiance, temperature float64, shading ShadingConfig, lo, hi float64, points int) ModuleCurve {
	return s.NewModule(irradiance, temperature, shading).IVCurve(lo, hi, points)
}

// FindMPP locates the module maximum power point by grid search.
func (s *Simulator) FindMPP(irradiance, temperature float64, shading ShadingConfig, fast bool) MPP {
	return s.NewModule(irradiance, temperature, shading).FindMPP(fast)
}

// AnalyzeHotspots reports every reverse-biased cell at the given current.
func (s *Simulator) AnalyzeHotspots(irradiance, temperature float64, shading ShadingConfig, current float64) HotspotReport {
	return s.NewModule(irradiance, temperature, shading).AnalyzeHotspots(current)
}
