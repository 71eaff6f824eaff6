package pvmodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/floats"
)

// linear_lut builds a grid sampling an affine function; multilinear
// interpolation must reproduce an affine function exactly, including
// extrapolation beyond the axes.
func linear_lut(f func(g, th, s, i float64) float64) *LUTData {
	axes := GridAxes{
		Irradiance:  []float64{200.0, 600.0, 1000.0},
		Temperature: []float64{0.0, 25.0, 50.0},
		Shading:     []float64{0.0, 0.5, 1.0},
		Current:     []float64{0.0, 5.0, 10.0, 15.0},
	}

	voltage := make([]float64, 0, axes.Size())
	for _, g := range axes.Irradiance {
		for _, th := range axes.Temperature {
			for _, s := range axes.Shading {
				for _, i := range axes.Current {
					voltage = append(voltage, f(g, th, s, i))
				}
			}
		}
	}
	return &LUTData{Axes: axes, Voltage: voltage}
}

func TestInterpolator_ReproducesAffineFunction(t *testing.T) {
	f := func(g, th, s, i float64) float64 {
		return 0.001*g - 0.002*th - 0.3*s - 0.05*i + 0.1
	}
	ip, err := NewInterpolator(linear_lut(f))
	require.NoError(t, err)

	cases := [][4]float64{
		{200.0, 0.0, 0.0, 0.0},   // grid node
		{1000.0, 50.0, 1.0, 15.0}, // far corner node
		{430.0, 13.7, 0.21, 7.3}, // interior
		{600.0, 25.0, 0.5, 5.0},  // center node
	}
	for _, c := range cases {
		want := f(c[0], c[1], c[2], c[3])
		got := ip.Interpolate(c[0], c[1], c[2], c[3])
		assert.InDelta(t, want, got, 1e-12, "at %v", c)
	}
}

func TestInterpolator_ExtrapolatesLinearly(t *testing.T) {
	f := func(g, th, s, i float64) float64 {
		return 0.0005*g - 0.001*th - 0.1*s - 0.02*i
	}
	ip, err := NewInterpolator(linear_lut(f))
	require.NoError(t, err)

	// Outside every axis; an affine function extrapolates without error.
	got := ip.Interpolate(1200.0, -10.0, 1.2, 18.0)
	assert.InDelta(t, f(1200.0, -10.0, 1.2, 18.0), got, 1e-12)
}

func TestInterpolator_RejectsBadAxes(t *testing.T) {
	lut := linear_lut(func(g, th, s, i float64) float64 { return 0.0 })

	short := *lut
	short.Axes.Shading = []float64{0.5}
	_, err := NewInterpolator(&short)
	assert.Error(t, err)

	unsorted := *lut
	unsorted.Axes.Temperature = []float64{50.0, 25.0, 0.0}
	_, err = NewInterpolator(&unsorted)
	assert.Error(t, err)

	truncated := *lut
	truncated.Voltage = lut.Voltage[:len(lut.Voltage)-1]
	_, err = NewInterpolator(&truncated)
	assert.Error(t, err)
}

func TestInterpolator_AccuracyInForwardRegion(t *testing.T) {
	cfg := DefaultModelConfig()
	axes := GridAxes{
		Irradiance:  []float64{800.0, 900.0, 1000.0},
		Temperature: []float64{15.0, 25.0, 35.0},
		Shading:     []float64{0.0, 0.1, 0.2},
		Current:     floats.Span(make([]float64, 30), 0.0, 6.0),
	}

	lut := GenerateLUT(axes, cfg.Cell, cfg.Solver, nil)
	ip, err := NewInterpolator(lut)
	require.NoError(t, err)

	// Interior sample points in the forward operating region, where the
	// voltage surface is smooth; the breakdown cliff near I = Iph is not
	// representable by a coarse multilinear grid and is excluded.
	samples := [][4]float64{
		{850.0, 20.0, 0.05, 3.0},
		{950.0, 30.0, 0.15, 2.0},
		{1000.0, 25.0, 0.1, 4.0},
		{820.0, 17.5, 0.02, 1.1},
	}
	for _, p := range samples {
		cell := NewCell(p[0], p[1], p[2], cfg.Cell, cfg.Solver, nil)
		exact, prov := cell.ExactVoltageForCurrent(p[3])
		require.Equal(t, SolveExact, prov)

		got := ip.Interpolate(p[0], p[1], p[2], p[3])
		assert.InDelta(t, exact, got, 0.1, "at %v", p)
	}
}

func TestInterpolator_MatchesExactSolverOnNodes(t *testing.T) {
	cfg := DefaultModelConfig()
	axes := GridAxes{
		Irradiance:  []float64{600.0, 1000.0},
		Temperature: []float64{15.0, 35.0},
		Shading:     []float64{0.0, 0.5},
		Current:     []float64{0.0, 4.0, 8.0},
	}
	lut := GenerateLUT(axes, cfg.Cell, cfg.Solver, nil)
	ip, err := NewInterpolator(lut)
	require.NoError(t, err)

	// On a grid node the interpolation weights collapse to a single corner.
	cell := NewCell(1000.0, 35.0, 0.5, cfg.Cell, cfg.Solver, nil)
	want, _ := cell.ExactVoltageForCurrent(4.0)
	assert.InDelta(t, want, ip.Interpolate(1000.0, 35.0, 0.5, 4.0), 1e-9)
}
