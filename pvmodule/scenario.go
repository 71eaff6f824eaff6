package pvmodule

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scenario is a named shading situation: which cells of which strings are
// shaded, and how strongly. Cell indices refer to positions inside a string.
type Scenario struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	ShadingIntensity float64          `json:"shading_intensity"` // 0..1 applied to every listed cell
	ShadingPattern   map[string][]int `json:"shading_pattern"`   // string key -> shaded cell indices
}

// ScenarioFile is the on-disk scenario catalog.
type ScenarioFile struct {
	Scenarios []Scenario `json:"scenarios"`
}

/*
LoadScenarios reads a scenario catalog from a JSON file.

	Args:
		path: catalog file path
*/
func LoadScenarios(path string) ([]Scenario, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario file: %w", err)
	}
	defer file.Close()

	var sf ScenarioFile
	if err := json.NewDecoder(file).Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode scenario file: %w", err)
	}
	return sf.Scenarios, nil
}

// ByID finds a scenario in a catalog by identifier.
func ByID(scenarios []Scenario, id string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

/*
ShadingConfig materializes the scenario into a per-string shading config.

	Args:
		intensity_override: shading factor replacing the scenario's own
		                    intensity when >= 0
*/
func (s Scenario) ShadingConfig(intensity_override float64) ShadingConfig {
	intensity := s.ShadingIntensity
	if intensity_override >= 0.0 {
		intensity = intensity_override
	}
	intensity = clamp(intensity, 0.0, 1.0)

	cfg := make(ShadingConfig, len(s.ShadingPattern))
	for key, cells := range s.ShadingPattern {
		pattern := make(ShadingPattern, len(cells))
		for _, c := range cells {
			pattern[c] = intensity
		}
		cfg[key] = pattern
	}
	return cfg
}

/*
ShadingConfigFromCounts shades the first n cells of each string.

	Args:
		counts: number of shaded cells per string, indexed by string
		intensity: shading factor applied to each shaded cell, 0..1
*/
func ShadingConfigFromCounts(counts []int, intensity float64) ShadingConfig {
	intensity = clamp(intensity, 0.0, 1.0)
	cfg := make(ShadingConfig, len(counts))
	for i, n := range counts {
		if n <= 0 {
			continue
		}
		pattern := make(ShadingPattern, n)
		for c := 0; c < n; c++ {
			pattern[c] = intensity
		}
		cfg[StringKey(i)] = pattern
	}
	return cfg
}
