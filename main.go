package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"pv_shading_calc/pvmodule"
)

/*
Run one shading analysis: initialize (or load) the LUT, compute the module
I-V curve, MPP and hot-spot report for the requested shading situation, and
write the results to the output folder.

	Args:
		scenario_path: scenario catalog JSON path, may be empty
		scenario_id: id of the scenario to run, may be empty for unshaded
		output_dir: output folder path
		lut_path: LUT cache file path
		irradiance: W/m2
		temperature: degree C
		intensity: shading intensity override, <0 keeps the scenario's own
		force_lut: regenerate the LUT even when the cache is valid
		save_plot: render the I-V/P-V PNG
*/
func run(
	scenario_path string,
	scenario_id string,
	output_dir string,
	lut_path string,
	irradiance float64,
	temperature float64,
	intensity float64,
	force_lut bool,
	save_plot bool,
) {
	if err := os.MkdirAll(output_dir, 0755); err != nil {
		log.Fatalf("`%s` is not a writable directory: %v", output_dir, err)
	}

	// ---- shading configuration ----

	var shading pvmodule.ShadingConfig
	scenario_name := "unshaded"
	if scenario_path != "" && scenario_id != "" {
		log.Printf("loading scenario catalog `%s`", scenario_path)
		scenarios, err := pvmodule.LoadScenarios(scenario_path)
		if err != nil {
			log.Fatal(err)
		}
		scenario, ok := pvmodule.ByID(scenarios, scenario_id)
		if !ok {
			log.Fatalf("scenario `%s` not found in `%s`", scenario_id, scenario_path)
		}
		shading = scenario.ShadingConfig(intensity)
		scenario_name = scenario.Name
	}

	// ---- LUT ----

	sim := pvmodule.NewSimulator(pvmodule.DefaultModelConfig(), pvmodule.DefaultGridAxes())

	last := -1
	progress := func(percent int, message string) {
		if percent/10 > last/10 {
			log.Printf("[%3d%%] %s", percent, message)
			last = percent
		}
	}
	if err := sim.InitLUT(lut_path, force_lut, progress); err != nil {
		log.Fatal(err)
	}

	// ---- computation ----

	log.Printf("scenario: %s (%.0f W/m2, %.0f degC)", scenario_name, irradiance, temperature)

	curve := sim.ComputeIVCurve(irradiance, temperature, shading, 0.0, 0.0, 100)
	mpp := sim.FindMPP(irradiance, temperature, shading, false)
	hotspots := sim.AnalyzeHotspots(irradiance, temperature, shading, mpp.Current)

	log.Printf("MPP: %.2f W at %.2f V / %.2f A (%d strings bypassed)",
		mpp.Power, mpp.Voltage, mpp.Current, mpp.Details.NumBypassedStrings)
	log.Printf("hot spots at MPP current: %d cells, %.2f W dissipated",
		hotspots.NumHotspots, hotspots.TotalHotspotPower)

	// ---- output ----

	curve_path := filepath.Join(output_dir, "iv_curve.csv")
	log.Printf("save I-V curve to `%s`", curve_path)
	if err := pvmodule.SaveCurveCSV(curve, curve_path); err != nil {
		log.Fatal(err)
	}

	hotspot_path := filepath.Join(output_dir, "hotspots.csv")
	log.Printf("save hot-spot report to `%s`", hotspot_path)
	if err := pvmodule.SaveHotspotCSV(hotspots, hotspot_path); err != nil {
		log.Fatal(err)
	}

	if save_plot {
		plot_path := filepath.Join(output_dir, "iv_curve.png")
		log.Printf("save I-V plot to `%s`", plot_path)
		title := fmt.Sprintf("%s, %.0f W/m2, %.0f degC", scenario_name, irradiance, temperature)
		if err := save_iv_plot(curve, title, plot_path); err != nil {
			log.Fatal(err)
		}
	}
}

func main() {
	var scenario_path string
	flag.StringVar(&scenario_path, "scenarios", "", "scenario catalog JSON file")

	var scenario_id string
	flag.StringVar(&scenario_id, "scenario", "", "id of the scenario to run (empty: unshaded)")

	var output_dir string
	flag.StringVar(&output_dir, "o", ".", "output folder")

	var lut_path string
	flag.StringVar(&lut_path, "lut", "lut_cache.json.gz", "LUT cache file")

	var irradiance float64
	flag.Float64Var(&irradiance, "irradiance", 1000.0, "irradiance in W/m2")

	var temperature float64
	flag.Float64Var(&temperature, "temperature", 25.0, "cell temperature in degC")

	var intensity float64
	flag.Float64Var(&intensity, "intensity", -1.0, "shading intensity override in 0..1 (negative: use the scenario's)")

	var force_lut bool
	flag.BoolVar(&force_lut, "force_lut", false, "regenerate the LUT even when a valid cache exists")

	var save_plot bool
	flag.BoolVar(&save_plot, "plot", false, "also render the I-V/P-V curves as PNG")

	flag.Parse()

	start := time.Now()

	run(
		scenario_path,
		scenario_id,
		output_dir,
		lut_path,
		irradiance,
		temperature,
		intensity,
		force_lut,
		save_plot,
	)

	elapsedTime := time.Since(start)
	log.Printf("elapsed_time: %v [sec]", elapsedTime)
}
