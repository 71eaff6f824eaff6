package pvmodule

import (
	"fmt"
	"sort"
)

// Interpolator performs 4-D multilinear interpolation over a pre-computed
// voltage grid. It is immutable after construction and therefore safe to
// share, without synchronization, across any number of Cell instances.
type Interpolator struct {
	irr   []float64 // W/m2, ascending
	temp  []float64 // degree C, ascending
	shade []float64 // 0..1, ascending
	curr  []float64 // A, ascending

	values  []float64 // grid-major: [irr][temp][shade][curr] flattened
	strides [4]int
}

/*
NewInterpolator validates the LUT and builds an interpolator over it.

	Args:
		lut: generated or loaded LUT data

	Returns:
		interpolator, or an error when an axis is degenerate or the value
		count does not match the axis lengths
*/
func NewInterpolator(lut *LUTData) (*Interpolator, error) {
	axes := [][]float64{
		lut.Axes.Irradiance,
		lut.Axes.Temperature,
		lut.Axes.Shading,
		lut.Axes.Current,
	}
	names := []string{"irradiance", "temperature", "shading", "current"}
	size := 1
	for i, axis := range axes {
		if len(axis) < 2 {
			return nil, fmt.Errorf("lut axis %s: need at least 2 points, got %d", names[i], len(axis))
		}
		if !sort.Float64sAreSorted(axis) {
			return nil, fmt.Errorf("lut axis %s: not ascending", names[i])
		}
		size *= len(axis)
	}
	if len(lut.Voltage) != size {
		return nil, fmt.Errorf("lut voltage grid: have %d values, axes imply %d", len(lut.Voltage), size)
	}

	ip := &Interpolator{
		irr:    lut.Axes.Irradiance,
		temp:   lut.Axes.Temperature,
		shade:  lut.Axes.Shading,
		curr:   lut.Axes.Current,
		values: lut.Voltage,
	}
	ip.strides = [4]int{
		len(ip.temp) * len(ip.shade) * len(ip.curr),
		len(ip.shade) * len(ip.curr),
		len(ip.curr),
		1,
	}
	return ip, nil
}

/*
Interpolate returns the cell voltage for the given operating condition and
forced current.

Out-of-range inputs are linearly extrapolated rather than rejected;
extrapolated values carry materially higher error and callers near the grid
edges should treat results cautiously.

	Args:
		irradiance: W/m2
		temperature: degree C
		shading: 0..1
		current: A

	Returns:
		cell voltage, V
*/
func (ip *Interpolator) Interpolate(irradiance, temperature, shading, current float64) float64 {
	i0, wi := cell_index(ip.irr, irradiance)
	j0, wj := cell_index(ip.temp, temperature)
	k0, wk := cell_index(ip.shade, shading)
	m0, wm := cell_index(ip.curr, current)

	// Weighted sum over the 16 corners of the enclosing grid cell. Weights
	// outside [0,1] realize the linear extrapolation.
	var v float64
	for b := 0; b < 16; b++ {
		di := b >> 3 & 1
		dj := b >> 2 & 1
		dk := b >> 1 & 1
		dm := b & 1

		w := pick(wi, di) * pick(wj, dj) * pick(wk, dk) * pick(wm, dm)
		if w == 0.0 {
			continue
		}
		idx := (i0+di)*ip.strides[0] + (j0+dj)*ip.strides[1] + (k0+dk)*ip.strides[2] + (m0 + dm)
		v += w * ip.values[idx]
	}
	return v
}

// Len returns the axis lengths (irradiance, temperature, shading, current).
func (ip *Interpolator) Len() [4]int {
	return [4]int{len(ip.irr), len(ip.temp), len(ip.shade), len(ip.curr)}
}

/*
Locate the grid interval for x on an ascending axis.

	Returns:
		(1) index of the interval's lower node, clamped to [0, len-2] so the
		    edge intervals extend beyond the axis
		(2) fractional position of x within the interval (unclamped)
*/
func cell_index(axis []float64, x float64) (int, float64) {
	i := sort.SearchFloat64s(axis, x) - 1
	if i < 0 {
		i = 0
	}
	if i > len(axis)-2 {
		i = len(axis) - 2
	}
	return i, (x - axis[i]) / (axis[i+1] - axis[i])
}

// pick returns the multilinear weight of the lower (d=0) or upper (d=1) node.
func pick(w float64, d int) float64 {
	if d == 1 {
		return w
	}
	return 1.0 - w
}
