package pvmodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stc_module(shading ShadingConfig) *PVModule {
	return NewPVModule(StcIrradiance, StcTemperature, shading, DefaultModelConfig(), nil)
}

func TestModule_VoltageIsStringSum(t *testing.T) {
	m := stc_module(nil)

	r := m.VoltageAtCurrent(5.0)
	require.Len(t, r.StringResults, 3)

	sum := 0.0
	for _, sr := range r.StringResults {
		sum += sr.Voltage
	}
	assert.InDelta(t, sum, r.Voltage, 1e-12)
	assert.InDelta(t, r.Voltage*5.0, r.TotalPower, 1e-9)
	assert.Equal(t, 0, r.NumBypassedStrings)
}

func TestModule_CurrentCeilingTracksWeakestString(t *testing.T) {
	// Half-shading one cell caps that string's Isc near 5 A; the default
	// sweep ceiling must follow the weakest string, not the strongest.
	shading := ShadingConfig{StringKey(0): ShadingPattern{0: 0.5}}
	m := stc_module(shading)

	ceiling := m.DefaultCurrentCeiling()
	assert.InDelta(t, 5.0*1.05, ceiling, 0.2)
	assert.Less(t, ceiling, 6.0)
}

func TestModule_UnshadedMPP(t *testing.T) {
	m := stc_module(nil)

	mpp := m.FindMPP(false)

	// 108 cells at ~0.65 V x 10 A x FF ~0.74 per cell.
	assert.InDelta(t, 517.0, mpp.Power, 0.02*517.0)
	assert.Equal(t, 0, mpp.Details.NumBypassedStrings)
	assert.Greater(t, mpp.Voltage, 50.0)
	assert.Greater(t, mpp.Current, 8.5)
}

func TestModule_ShadingReducesPowerAndCreatesHotspots(t *testing.T) {
	pattern := ShadingPattern{}
	for i := 0; i < 8; i++ {
		pattern[i] = 1.0
	}
	m := stc_module(ShadingConfig{StringKey(0): pattern})

	cmp := m.CompareWithUnshaded()
	assert.Greater(t, cmp.PowerLoss, 0.0)
	assert.Greater(t, cmp.PowerLossPercent, 0.0)
	assert.Less(t, cmp.ShadedMPP.Power, cmp.UnshadedMPP.Power)

	// At 5 A every fully shaded cell sits at the breakdown voltage and
	// dissipates 60 W.
	report := m.AnalyzeHotspots(5.0)
	assert.Equal(t, 8, report.NumHotspots)
	assert.InDelta(t, 480.0, report.TotalHotspotPower, 1.0)
	for _, h := range report.Hotspots {
		assert.Equal(t, 0, h.String)
		assert.Less(t, h.Voltage, 0.0)
		assert.Greater(t, h.Power, 0.0)
	}
}

func TestModule_CellVoltageMap(t *testing.T) {
	shading := ShadingConfig{StringKey(1): ShadingPattern{3: 1.0}}
	m := stc_module(shading)

	vm := m.CellVoltageMap(5.0)
	rows, cols := vm.CellVoltages.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 36, cols)

	// The shaded cell carries the most negative voltage in the module.
	assert.InDelta(t, -12.0, vm.CellVoltages.At(1, 3), 1e-6)
	assert.Len(t, vm.StringVoltages, 3)
}

func TestModule_ShadingSummary(t *testing.T) {
	pattern := ShadingPattern{}
	for i := 0; i < 8; i++ {
		pattern[i] = 1.0
	}
	m := stc_module(ShadingConfig{StringKey(2): pattern})

	summary := m.ShadingSummary()
	assert.Equal(t, 108, summary.TotalCells)
	assert.Equal(t, 8, summary.TotalShadedCells)
	assert.InDelta(t, 8.0/108.0*100.0, summary.ShadingPercentage, 1e-9)

	require.Len(t, summary.Strings, 3)
	assert.Equal(t, 0, summary.Strings[0].ShadedCells)
	assert.Equal(t, 8, summary.Strings[2].ShadedCells)
	assert.InDelta(t, 8.0/36.0, summary.Strings[2].AvgShading, 1e-9)
}

func TestModule_SimulateScenariosDefaultCurrents(t *testing.T) {
	m := stc_module(nil)

	samples := m.SimulateScenarios(nil)
	require.Len(t, samples, 4)

	// Zero current first, then half, full and 120% of MPP current.
	assert.Equal(t, 0.0, samples[0].Current)
	assert.InDelta(t, samples[2].Current*0.5, samples[1].Current, 1e-9)
	assert.InDelta(t, samples[2].Current*1.2, samples[3].Current, 1e-9)

	// Past the MPP current the module voltage collapses.
	assert.Less(t, samples[3].Result.Voltage, samples[2].Result.Voltage)
}

func TestModule_IVCurveDefaultsAndBypassStates(t *testing.T) {
	m := stc_module(nil)

	curve := m.IVCurve(0.0, 0.0, 25)
	require.Len(t, curve.Currents, 25)
	assert.Equal(t, 0.0, curve.Currents[0])
	assert.InDelta(t, m.DefaultCurrentCeiling(), curve.Currents[24], 1e-9)

	for _, states := range curve.BypassStates {
		assert.Len(t, states, 3)
	}
}
