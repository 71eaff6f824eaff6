package pvmodule

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCurveCSV(t *testing.T) {
	m := stc_module(nil)
	curve := m.IVCurve(0.0, 0.0, 10)

	path := filepath.Join(t.TempDir(), "out", "iv_curve.csv")
	require.NoError(t, SaveCurveCSV(curve, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 11) // header + 10 rows
	assert.Contains(t, lines[0], "current_a")
	assert.Contains(t, lines[0], "voltage_v")
	assert.Contains(t, lines[0], "bypassed_strings")
}

func TestSaveHotspotCSV(t *testing.T) {
	pattern := ShadingPattern{0: 1.0, 1: 1.0}
	m := stc_module(ShadingConfig{StringKey(0): pattern})

	report := m.AnalyzeHotspots(5.0)
	require.Equal(t, 2, report.NumHotspots)

	path := filepath.Join(t.TempDir(), "hotspots.csv")
	require.NoError(t, SaveHotspotCSV(report, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3) // header + 2 hot spots
	assert.Contains(t, lines[0], "shading_factor")
}
