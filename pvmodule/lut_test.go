package pvmodule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tiny_axes() GridAxes {
	return GridAxes{
		Irradiance:  []float64{400.0, 1000.0},
		Temperature: []float64{10.0, 40.0},
		Shading:     []float64{0.0, 1.0},
		Current:     []float64{0.0, 5.0, 10.0},
	}
}

func TestGenerateLUT_ShapeAndMetadata(t *testing.T) {
	cfg := DefaultModelConfig()
	axes := tiny_axes()

	lut := GenerateLUT(axes, cfg.Cell, cfg.Solver, nil)

	assert.Len(t, lut.Voltage, axes.Size())
	assert.Equal(t, axes.Shape(), lut.Metadata.GridShape)
	assert.Equal(t, cfg.Cell.Hash(), lut.Metadata.CellParamsHash)
	assert.NotEmpty(t, lut.Metadata.GeneratedAt)
}

func TestGenerateLUT_ProgressMonotone(t *testing.T) {
	cfg := DefaultModelConfig()

	// Enough (irradiance, temperature, shading) combinations for several
	// intermediate progress reports.
	axes := GridAxes{
		Irradiance:  []float64{200.0, 600.0, 1000.0},
		Temperature: []float64{0.0, 15.0, 30.0, 45.0},
		Shading:     []float64{0.0, 0.5, 1.0},
		Current:     []float64{0.0, 5.0, 10.0},
	}

	var percents []int
	lut := GenerateLUT(axes, cfg.Cell, cfg.Solver, func(percent int, message string) {
		percents = append(percents, percent)
		assert.NotEmpty(t, message)
	})
	require.NotNil(t, lut)

	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestLUT_SaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultModelConfig()
	lut := GenerateLUT(tiny_axes(), cfg.Cell, cfg.Solver, nil)

	path := filepath.Join(t.TempDir(), "cache", "lut.json.gz")
	require.NoError(t, SaveLUT(lut, path))

	loaded, err := LoadLUT(path)
	require.NoError(t, err)
	assert.Equal(t, lut.Metadata, loaded.Metadata)
	assert.Equal(t, lut.Axes, loaded.Axes)
	assert.InDeltaSlice(t, lut.Voltage, loaded.Voltage, 1e-12)
}

func TestLUT_Validity(t *testing.T) {
	cfg := DefaultModelConfig()
	lut := GenerateLUT(tiny_axes(), cfg.Cell, cfg.Solver, nil)

	path := filepath.Join(t.TempDir(), "lut.json.gz")
	require.NoError(t, SaveLUT(lut, path))

	assert.True(t, IsValidLUT(path, cfg.Cell))

	// Any physical parameter change must invalidate the cache.
	changed := cfg.Cell
	changed.Vbr = 15.0
	assert.False(t, IsValidLUT(path, changed))

	// Missing and corrupt files are invalid, not fatal.
	assert.False(t, IsValidLUT(filepath.Join(t.TempDir(), "missing.json.gz"), cfg.Cell))

	corrupt := filepath.Join(t.TempDir(), "corrupt.json.gz")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a gzip stream"), 0644))
	assert.False(t, IsValidLUT(corrupt, cfg.Cell))
}

func TestInitializeLUT_GeneratesThenLoads(t *testing.T) {
	cfg := DefaultModelConfig()
	path := filepath.Join(t.TempDir(), "lut.json.gz")

	lut1, ip1, err := InitializeLUT(path, tiny_axes(), cfg.Cell, cfg.Solver, false, nil)
	require.NoError(t, err)
	require.NotNil(t, ip1)
	assert.FileExists(t, path)

	// Second call hits the cache and returns the identical grid.
	lut2, ip2, err := InitializeLUT(path, tiny_axes(), cfg.Cell, cfg.Solver, false, nil)
	require.NoError(t, err)
	require.NotNil(t, ip2)
	assert.Equal(t, lut1.Metadata.GeneratedAt, lut2.Metadata.GeneratedAt)
	assert.InDeltaSlice(t, lut1.Voltage, lut2.Voltage, 1e-12)
}
