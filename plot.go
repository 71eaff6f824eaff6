package main

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pv_shading_calc/pvmodule"
)

/*
save_iv_plot renders the module I-V and P-V curves into one PNG.

	Args:
		curve: module current sweep
		title: plot title
		path: output PNG path
*/
func save_iv_plot(curve pvmodule.ModuleCurve, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Module voltage [V]"
	p.Y.Label.Text = "Current [A] / Power [W/10]"

	iv := make(plotter.XYs, len(curve.Currents))
	pv := make(plotter.XYs, len(curve.Currents))
	for i := range curve.Currents {
		iv[i].X = curve.Voltages[i]
		iv[i].Y = curve.Currents[i]
		pv[i].X = curve.Voltages[i]
		// Scaled to share one axis with the current curve.
		pv[i].Y = curve.Powers[i] / 10.0
	}

	iv_line, err := plotter.NewLine(iv)
	if err != nil {
		return fmt.Errorf("build I-V line: %w", err)
	}
	iv_line.Color = color.RGBA{B: 255, A: 255}

	pv_line, err := plotter.NewLine(pv)
	if err != nil {
		return fmt.Errorf("build P-V line: %w", err)
	}
	pv_line.Color = color.RGBA{R: 255, A: 255}

	p.Add(iv_line, pv_line)
	p.Legend.Add("I-V", iv_line)
	p.Legend.Add("P-V (x0.1)", pv_line)
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
